package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

// Order is the header row. At most one active header per table is enforced
// by the ux_orders_active_table partial unique index.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID         `gorm:"column:organization_id;type:uuid;not null"`
	TableID        uuid.UUID         `gorm:"column:table_id;type:uuid;not null"`
	Status         enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Notes          *string           `gorm:"column:notes"`
	ClosedAt       *time.Time        `gorm:"column:closed_at"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// ActiveOrderConstraint names the partial unique index on orders(table_id).
const ActiveOrderConstraint = "ux_orders_active_table"
