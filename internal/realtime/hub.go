package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event is one message pushed to websocket clients.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var errHubStopped = errors.New("realtime hub stopped")

type roomEvent struct {
	organizationID uuid.UUID
	message        []byte
}

// Hub fans events out to the websocket clients of one organization.
type Hub struct {
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomEvent
	done       chan struct{}

	upgrader *websocket.Upgrader

	mu sync.RWMutex
}

// NewHub builds a hub whose websocket upgrades accept the given origins.
func NewHub(allowedOrigins ...string) *Hub {
	return &Hub{
		upgrader:   newUpgrader(allowedOrigins),
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for orgID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, orgID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.organizationID] == nil {
				h.rooms[client.organizationID] = make(map[*Client]bool)
			}
			h.rooms[client.organizationID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[event.organizationID] {
				select {
				case client.send <- event.message:
				default:
					// slow consumer
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop must be called with mu held.
func (h *Hub) drop(client *Client) {
	clients, ok := h.rooms[client.organizationID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.organizationID)
	}
}

// Broadcast queues event for every client of the organization.
func (h *Hub) Broadcast(organizationID uuid.UUID, event Event) error {
	message, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case <-h.done:
		return errHubStopped
	default:
	}
	select {
	case h.broadcast <- roomEvent{organizationID: organizationID, message: message}:
		return nil
	case <-h.done:
		return errHubStopped
	}
}

func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount reports how many clients are connected for the organization.
func (h *Hub) ClientCount(organizationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[organizationID])
}
