package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MenuItem is hard-deleted only; deleting its Category cascades in the database.
type MenuItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID       `gorm:"column:organization_id;type:uuid;not null"`
	CategoryID     *uuid.UUID      `gorm:"column:category_id;type:uuid"`
	Name           string          `gorm:"column:name;not null"`
	Description    string          `gorm:"column:description;not null;default:''"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	IsAddon        bool            `gorm:"column:is_addon;not null;default:false"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// MenuItemModifierGroup is the many-to-many join between menu items and modifier groups.
type MenuItemModifierGroup struct {
	MenuItemID      uuid.UUID `gorm:"column:menu_item_id;type:uuid;primaryKey"`
	ModifierGroupID uuid.UUID `gorm:"column:modifier_group_id;type:uuid;primaryKey"`
	Position        int       `gorm:"column:position;not null;default:0"`
}

func (MenuItemModifierGroup) TableName() string {
	return "menu_item_modifier_group"
}
