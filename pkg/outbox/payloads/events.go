package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

// OrderSubmittedEvent is emitted after a cart replaced an order's items.
type OrderSubmittedEvent struct {
	OrderID     uuid.UUID         `json:"orderId"`
	TableID     uuid.UUID         `json:"tableId"`
	TableNumber string            `json:"tableNumber"`
	Flow        string            `json:"flow"`
	Status      enums.OrderStatus `json:"status"`
	ItemCount   int               `json:"itemCount"`
	Subtotal    string            `json:"subtotal"`
	Created     bool              `json:"created"`
}

// OrderStatusChangedEvent follows the kitchen through pending, preparing and ready.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID         `json:"orderId"`
	TableID uuid.UUID         `json:"tableId"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
}

type OrderClosedEvent struct {
	OrderID  uuid.UUID `json:"orderId"`
	TableID  uuid.UUID `json:"tableId"`
	ClosedAt time.Time `json:"closedAt"`
}

type OrderReopenedEvent struct {
	OrderID uuid.UUID         `json:"orderId"`
	TableID uuid.UUID         `json:"tableId"`
	Status  enums.OrderStatus `json:"status"`
}

// OrderOrphanDetectedEvent reports an active header that has carried no items past the grace period.
type OrderOrphanDetectedEvent struct {
	OrderID   uuid.UUID         `json:"orderId"`
	TableID   uuid.UUID         `json:"tableId"`
	Status    enums.OrderStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	Age       string            `json:"age"`
}
