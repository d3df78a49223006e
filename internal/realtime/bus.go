package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/pkg/enums"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
	"github.com/angelmondragon/tableside-backend/pkg/redis"
)

// Backend tables that emit change notifications.
const (
	TableOrders     = "orders"
	TableOrderItems = "order_items"
	TableTables     = "tables"
)

// Change is one row-level change notification.
type Change struct {
	Table          string         `json:"table"`
	Op             enums.ChangeOp `json:"op"`
	OrganizationID uuid.UUID      `json:"organizationId"`
	RowID          uuid.UUID      `json:"rowId"`
	At             time.Time      `json:"at"`
}

// Handler receives matching changes. It runs on the subscription goroutine.
type Handler func(ctx context.Context, change Change)

// Notifier is the publish side of the bus.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
}

type pubsubBackend interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) (<-chan redis.Message, func() error, error)
	ChangeChannel(table string) string
}

// Bus carries Change notifications over redis pub/sub, one channel per table.
type Bus struct {
	backend pubsubBackend
	logg    *logger.Logger
}

// Subscription stops delivery when closed.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewBus(backend pubsubBackend, logg *logger.Logger) (*Bus, error) {
	if backend == nil {
		return nil, errors.New("change bus backend required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Bus{backend: backend, logg: logg}, nil
}

// Notify publishes change on its table channel.
func (b *Bus) Notify(ctx context.Context, change Change) error {
	if change.Table == "" {
		return errors.New("change table is required")
	}
	if !change.Op.IsValid() {
		return fmt.Errorf("invalid change op %q", change.Op)
	}
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	return b.backend.Publish(ctx, b.backend.ChangeChannel(change.Table), payload)
}

// Subscribe delivers every change on table whose op is selected by mask.
// Malformed payloads are logged and skipped.
func (b *Bus) Subscribe(ctx context.Context, table string, mask enums.ChangeMask, fn Handler) (*Subscription, error) {
	if table == "" {
		return nil, errors.New("change table is required")
	}
	if fn == nil {
		return nil, errors.New("change handler required")
	}
	if mask == 0 {
		mask = enums.MaskAll
	}

	subCtx, cancel := context.WithCancel(ctx)
	messages, _, err := b.backend.Subscribe(subCtx, b.backend.ChangeChannel(table))
	if err != nil {
		cancel()
		return nil, err
	}

	// Cancelling subCtx tears the redis subscription down and closes messages.
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for msg := range messages {
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				logCtx := b.logg.WithFields(subCtx, map[string]any{
					"channel": msg.Channel,
					"error":   err.Error(),
				})
				b.logg.Warn(logCtx, "dropping malformed change notification")
				continue
			}
			if change.Table != table || !mask.Matches(change.Op) {
				continue
			}
			fn(subCtx, change)
		}
	}()
	return sub, nil
}

// Close stops the subscription and waits for the delivery goroutine to exit.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Done is closed once no more changes will be delivered.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
