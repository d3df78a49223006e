package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is one submitted cart line. ClientLineID echoes the cart line id so
// modifier rows can be attached by key instead of insert position.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ItemID       uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	ClientLineID string          `gorm:"column:client_line_id;not null"`
	Title        string          `gorm:"column:title;not null"`
	Quantity     int             `gorm:"column:quantity;not null"`
	PriceEach    decimal.Decimal `gorm:"column:price_each;type:numeric(12,4);not null"`
	Note         *string         `gorm:"column:note"`
	Meta         json.RawMessage `gorm:"column:meta;type:jsonb"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OrderItemModifier normalizes one structured modifier pick for an order item.
type OrderItemModifier struct {
	OrderItemID uuid.UUID `gorm:"column:order_item_id;type:uuid;primaryKey"`
	ModifierID  uuid.UUID `gorm:"column:modifier_id;type:uuid;primaryKey"`
	Quantity    int       `gorm:"column:quantity;not null;default:1"`
}
