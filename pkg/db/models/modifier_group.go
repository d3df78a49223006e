package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

// ModifierGroup owns its Modifiers. SelectionMode is stored, never derived from Name.
type ModifierGroup struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID           `gorm:"column:organization_id;type:uuid;not null"`
	Name           string              `gorm:"column:name;not null"`
	SelectionMode  enums.SelectionMode `gorm:"column:selection_mode;type:text;not null;default:'multi'"`
	// MaxSelect caps distinct picks in a multi group; 0 means unlimited.
	MaxSelect int `gorm:"column:max_select;not null;default:0"`
	// Repeatable lets a multi group option carry qty > 1.
	Repeatable bool      `gorm:"column:repeatable;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
