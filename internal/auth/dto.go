package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/internal/organizations"
)

// SignInRequest captures the credentials sent to the sign-in endpoint.
// OrganizationID picks the tenant when the user works for more than one.
type SignInRequest struct {
	Email          string     `json:"email" validate:"required,email"`
	Password       string     `json:"password" validate:"required"`
	OrganizationID *uuid.UUID `json:"organizationId,omitempty"`
}

// SignUpRequest creates a login, its organization and the owner employee.
type SignUpRequest struct {
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	DisplayName      string `json:"displayName" validate:"required"`
	OrganizationName string `json:"organizationName" validate:"required"`
}

// RefreshRequest pairs the last access token with its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"accessToken" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// OrganizationSummary names a tenant the user may act on.
type OrganizationSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// TokenResponse is returned by sign-in, sign-up and refresh.
type TokenResponse struct {
	AccessToken   string                 `json:"accessToken"`
	RefreshToken  string                 `json:"refreshToken"`
	ExpiresAt     time.Time              `json:"expiresAt"`
	Session       Session                `json:"session"`
	User          *organizations.UserDTO `json:"user,omitempty"`
	Organizations []OrganizationSummary  `json:"organizations,omitempty"`
}

// SessionResponse describes the caller behind a live session.
type SessionResponse struct {
	Session      Session                `json:"session"`
	User         *organizations.UserDTO `json:"user"`
	Organization OrganizationSummary    `json:"organization"`
}

func summarize(memberships []organizations.Membership) []OrganizationSummary {
	out := make([]OrganizationSummary, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, OrganizationSummary{ID: m.OrganizationID, Name: m.OrganizationName})
	}
	return out
}
