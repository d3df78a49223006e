package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tableside-backend/pkg/config"
	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	"github.com/angelmondragon/tableside-backend/pkg/outbox"
	"github.com/angelmondragon/tableside-backend/pkg/outbox/payloads"
)

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders-topic"})
	require.NoError(t, err)
	return reg
}

func envelope(t *testing.T, version int, data string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(data),
	})
	require.NoError(t, err)
	return raw
}

func orderRow(eventType enums.OutboxEventType, payload json.RawMessage) models.OutboxEvent {
	return models.OutboxEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := newTestEventRegistry(t)
	orderID := uuid.New()
	data, err := json.Marshal(payloads.OrderSubmittedEvent{
		OrderID:     orderID,
		TableID:     uuid.New(),
		TableNumber: "12",
		Flow:        "employee",
		Status:      enums.OrderStatusPending,
		ItemCount:   3,
		Subtotal:    "33.40",
	})
	require.NoError(t, err)

	row := orderRow(enums.EventOrderSubmitted, envelope(t, 1, string(data)))
	row.AggregateID = orderID
	resolved, err := reg.Resolve(row)
	require.NoError(t, err)

	assert.Equal(t, "orders-topic", resolved.Descriptor.Topic)
	payload, ok := resolved.Payload.(*payloads.OrderSubmittedEvent)
	require.True(t, ok, "got %T", resolved.Payload)
	assert.Equal(t, orderID, payload.OrderID)
	assert.Equal(t, 3, payload.ItemCount)
	assert.NotEmpty(t, resolved.Envelope.EventID)
}

func TestEveryOrderEventHasADescriptor(t *testing.T) {
	reg := newTestEventRegistry(t)
	for _, eventType := range []enums.OutboxEventType{
		enums.EventOrderSubmitted,
		enums.EventOrderStatusChanged,
		enums.EventOrderClosed,
		enums.EventOrderReopened,
		enums.EventOrderOrphanFound,
	} {
		desc, ok := reg.byType[eventType]
		require.True(t, ok, eventType)
		assert.Equal(t, enums.AggregateOrder, desc.AggregateType)
	}
}

func TestResolveRejectsBadRows(t *testing.T) {
	reg := newTestEventRegistry(t)

	unknown := orderRow("table_renamed", envelope(t, 1, `{"name":"patio"}`))
	mismatch := orderRow(enums.EventOrderClosed, envelope(t, 1, `{}`))
	mismatch.AggregateType = enums.AggregateTable
	noAggregate := orderRow(enums.EventOrderClosed, envelope(t, 1, `{}`))
	noAggregate.AggregateID = uuid.Nil
	noEventID := orderRow(enums.EventOrderClosed, json.RawMessage(`{"version":1,"data":{}}`))

	cases := map[string]models.OutboxEvent{
		"unknown type":       unknown,
		"aggregate mismatch": mismatch,
		"missing aggregate":  noAggregate,
		"null payload":       orderRow(enums.EventOrderReopened, envelope(t, 1, "null")),
		"future version":     orderRow(enums.EventOrderClosed, envelope(t, MaxEnvelopeVersion+1, `{}`)),
		"missing event id":   noEventID,
		"garbage envelope":   orderRow(enums.EventOrderClosed, json.RawMessage(`[1,2]`)),
		"wrong payload type": orderRow(enums.EventOrderSubmitted, envelope(t, 1, `{"itemCount":"three"}`)),
	}
	for name, row := range cases {
		_, err := reg.Resolve(row)
		var nonRetry NonRetryableError
		assert.ErrorAs(t, err, &nonRetry, name)
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	assert.Error(t, err)
}
