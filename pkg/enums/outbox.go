package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
	AggregateTable OutboxAggregateType = "table"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateTable,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderSubmitted     OutboxEventType = "order_submitted"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventOrderClosed        OutboxEventType = "order_closed"
	EventOrderReopened      OutboxEventType = "order_reopened"
	EventOrderOrphanFound   OutboxEventType = "order_orphan_detected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderSubmitted,
	EventOrderStatusChanged,
	EventOrderClosed,
	EventOrderReopened,
	EventOrderOrphanFound,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
