package enums

import "fmt"

// OrderStatus tracks an order header through the kitchen.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusClosed    OrderStatus = "closed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusClosed,
}

// ActiveOrderStatuses lists the statuses that count as "the table has an open order".
// Must match the predicate of ux_orders_active_table.
func ActiveOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusPending, OrderStatusPreparing, OrderStatusReady}
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether the status occupies the table.
func (s OrderStatus) IsActive() bool {
	for _, candidate := range ActiveOrderStatuses() {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
