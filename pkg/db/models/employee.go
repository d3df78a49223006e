package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

// Employee links a user to an organization with a role.
type Employee struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID          `gorm:"column:organization_id;type:uuid;not null"`
	UserID         uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	Role           enums.EmployeeRole `gorm:"column:role;type:text;not null"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
