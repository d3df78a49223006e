package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

// Table is a physical dining table. Status is a denormalized cache of
// "has an active order"; the projection overlays live orders on top of it.
type Table struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID         `gorm:"column:organization_id;type:uuid;not null"`
	Number         string            `gorm:"column:table_number;not null"`
	Status         enums.TableStatus `gorm:"column:status;type:text;not null;default:'available'"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
