package tables

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tableside-backend/internal/realtime"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

type fakeBus struct {
	mu       sync.Mutex
	handlers map[string]realtime.Handler
}

func (b *fakeBus) Subscribe(_ context.Context, table string, _ enums.ChangeMask, fn realtime.Handler) (*realtime.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = make(map[string]realtime.Handler)
	}
	b.handlers[table] = fn
	return nil, nil
}

func (b *fakeBus) handler(table string) realtime.Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handlers[table]
}

type fakeHub struct {
	mu     sync.Mutex
	events map[uuid.UUID][]realtime.Event
}

func (h *fakeHub) Broadcast(organizationID uuid.UUID, event realtime.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.events == nil {
		h.events = make(map[uuid.UUID][]realtime.Event)
	}
	h.events[organizationID] = append(h.events[organizationID], event)
	return nil
}

func TestProjectorBroadcastsOnChange(t *testing.T) {
	svc, _, _ := newTestService(t, &stubOrders{})
	org := uuid.New()
	_, err := svc.Create(context.Background(), org, "1")
	require.NoError(t, err)

	bus := &fakeBus{}
	hub := &fakeHub{}
	projector, err := NewProjector(svc, bus, hub, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- projector.Run(ctx) }()

	require.Eventually(t, func() bool {
		return bus.handler(realtime.TableTables) != nil &&
			bus.handler(realtime.TableOrders) != nil &&
			bus.handler(realtime.TableOrderItems) != nil
	}, time.Second, 10*time.Millisecond)

	bus.handler(realtime.TableOrders)(context.Background(), realtime.Change{
		Table:          realtime.TableOrders,
		Op:             enums.ChangeInsert,
		OrganizationID: org,
	})
	bus.handler(realtime.TableTables)(context.Background(), realtime.Change{Table: realtime.TableTables, Op: enums.ChangeUpdate})

	hub.mu.Lock()
	events := hub.events[org]
	total := len(hub.events)
	hub.mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, 1, total, "changes without an organization are ignored")
	assert.Equal(t, EventProjection, events[0].Type)

	var projection Projection
	require.NoError(t, json.Unmarshal(events[0].Payload, &projection))
	require.Len(t, projection.Tables, 1)
	assert.Equal(t, "1", projection.Tables[0].Number)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("projector did not stop")
	}
}
