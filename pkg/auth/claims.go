package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           enums.EmployeeRole
	JTI            string
}

// AccessTokenClaims represents the typed JWT issued to staff.
type AccessTokenClaims struct {
	UserID         uuid.UUID          `json:"user_id"`
	OrganizationID uuid.UUID          `json:"organization_id"`
	Role           enums.EmployeeRole `json:"role"`
	jwt.RegisteredClaims
}
