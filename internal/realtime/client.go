package realtime

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	// must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

// newUpgrader accepts browser upgrades only from the listed origins. Requests
// without an Origin header come from non-browser clients and still need a
// session, which callers check before the upgrade.
func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = normalizeOrigin(origin); origin != "" {
			allowed[origin] = true
		}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return allowed[normalizeOrigin(origin)]
		},
	}
}

func normalizeOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// Client is one websocket connection bound to an organization.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	organizationID uuid.UUID
	send           chan []byte
}

// readPump only watches for disconnects; clients never send data.
func (c *Client) readPump(ctx context.Context, logg *logger.Logger) {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "websocket closed unexpectedly")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades an already-authorized request and joins the organization's room.
func ServeWS(hub *Hub, organizationID uuid.UUID, logg *logger.Logger, w http.ResponseWriter, r *http.Request) {
	if logg == nil {
		logg = logger.Nop()
	}
	ctx := logg.WithOrganizationID(r.Context(), organizationID.String())

	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "websocket upgrade failed")
		return
	}

	client := &Client{
		hub:            hub,
		conn:           conn,
		organizationID: organizationID,
		send:           make(chan []byte, 256),
	}
	if !hub.join(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}

	// r.Context() ends with the handler; the pumps outlive it.
	go client.writePump()
	go client.readPump(context.WithoutCancel(ctx), logg)
}
