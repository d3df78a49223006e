package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Modifier struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID    uuid.UUID       `gorm:"column:group_id;type:uuid;not null"`
	Name       string          `gorm:"column:name;not null"`
	PriceDelta decimal.Decimal `gorm:"column:price_delta;type:numeric(10,2);not null;default:0"`
	Position   int             `gorm:"column:position;not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
