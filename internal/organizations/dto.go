package organizations

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

// CreateUserInput carries the fields needed to persist a new login.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	DisplayName  string
}

// UserDTO is the public shape of a user account.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// Membership joins an employee row with its organization name.
type Membership struct {
	EmployeeID       uuid.UUID          `json:"employeeId"`
	OrganizationID   uuid.UUID          `json:"organizationId"`
	OrganizationName string             `json:"organizationName"`
	UserID           uuid.UUID          `json:"userId"`
	Role             enums.EmployeeRole `json:"role"`
	CreatedAt        time.Time          `json:"createdAt"`
}

type membershipRow struct {
	models.Employee
	OrganizationName string `gorm:"column:organization_name"`
}

// UserFromModel maps a user row to its DTO.
func UserFromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		LastLoginAt: u.LastLoginAt,
	}
}

func membershipsFromRows(rows []membershipRow) []Membership {
	out := make([]Membership, 0, len(rows))
	for _, row := range rows {
		out = append(out, Membership{
			EmployeeID:       row.ID,
			OrganizationID:   row.OrganizationID,
			OrganizationName: row.OrganizationName,
			UserID:           row.UserID,
			Role:             row.Role,
			CreatedAt:        row.CreatedAt,
		})
	}
	return out
}
