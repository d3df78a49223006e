package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tableside-backend/internal/cart"
	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	"github.com/angelmondragon/tableside-backend/pkg/money"
)

// Flow distinguishes staff submissions from the customer QR flow.
type Flow string

const (
	FlowEmployee Flow = "employee"
	FlowCustomer Flow = "customer"
)

func (f Flow) IsValid() bool {
	return f == FlowEmployee || f == FlowCustomer
}

// Actor identifies who triggered a write. UserID is uuid.Nil for customers.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// SubmitInput replaces the table's active order items with the cart's lines.
type SubmitInput struct {
	Scope cart.Scope
	Flow  Flow
	Actor Actor
}

// SubmitResult describes the order a submission landed on.
type SubmitResult struct {
	OrderID     uuid.UUID         `json:"orderId"`
	TableID     uuid.UUID         `json:"tableId"`
	TableNumber string            `json:"tableNumber"`
	Status      enums.OrderStatus `json:"status"`
	Created     bool              `json:"created"`
	ItemCount   int               `json:"itemCount"`
	Totals      money.Totals      `json:"totals"`
	CartCleared bool              `json:"cartCleared"`
}

// InvalidLine names a cart line that blocked a submission.
type InvalidLine struct {
	LineID string `json:"lineId"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// OrderRef addresses one order inside an organization.
type OrderRef struct {
	OrganizationID uuid.UUID
	OrderID        uuid.UUID
	Actor          Actor
}

type UpdateStatusInput struct {
	OrderRef
	Status enums.OrderStatus
}

type OrderDTO struct {
	ID        uuid.UUID         `json:"id"`
	TableID   uuid.UUID         `json:"tableId"`
	Status    enums.OrderStatus `json:"status"`
	ClosedAt  *time.Time        `json:"closedAt,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// ActiveOrder is an open order with at least one item.
type ActiveOrder struct {
	ID          uuid.UUID         `json:"id"`
	TableID     uuid.UUID         `json:"tableId"`
	TableNumber string            `json:"tableNumber"`
	Status      enums.OrderStatus `json:"status"`
	Notes       *string           `json:"notes,omitempty"`
	Items       []OrderItemDTO    `json:"items"`
	Totals      money.Totals      `json:"totals"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type OrderItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	ItemID       uuid.UUID       `json:"itemId"`
	ClientLineID string          `json:"clientLineId"`
	Title        string          `json:"title"`
	Quantity     int             `json:"quantity"`
	PriceEach    decimal.Decimal `json:"priceEach"`
	Note         *string         `json:"note,omitempty"`
	Meta         json.RawMessage `json:"meta,omitempty"`
}

// itemMeta is the descriptive customization stored on order_items.meta.
type itemMeta struct {
	Kind       cart.ModifierKind     `json:"kind"`
	Selections []cart.Selection      `json:"selections,omitempty"`
	Legacy     *cart.LegacyModifiers `json:"legacy,omitempty"`
}

func orderDTO(order *models.Order) OrderDTO {
	return OrderDTO{
		ID:        order.ID,
		TableID:   order.TableID,
		Status:    order.Status,
		ClosedAt:  order.ClosedAt,
		CreatedAt: order.CreatedAt,
	}
}

func orderItemDTO(item models.OrderItem) OrderItemDTO {
	return OrderItemDTO{
		ID:           item.ID,
		ItemID:       item.ItemID,
		ClientLineID: item.ClientLineID,
		Title:        item.Title,
		Quantity:     item.Quantity,
		PriceEach:    item.PriceEach,
		Note:         item.Note,
		Meta:         item.Meta,
	}
}
