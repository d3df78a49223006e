package auth

import (
	"context"

	"github.com/google/uuid"

	pkgAuth "github.com/angelmondragon/tableside-backend/pkg/auth"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

// Session is the signed-in employee acting on one organization.
type Session struct {
	UserID         uuid.UUID          `json:"userId"`
	OrganizationID uuid.UUID          `json:"organizationId"`
	Role           enums.EmployeeRole `json:"role"`
	AccessID       string             `json:"-"`
}

// Valid reports whether the session carries a full identity.
func (s Session) Valid() bool {
	return s.UserID != uuid.Nil && s.OrganizationID != uuid.Nil && s.Role.IsValid() && s.AccessID != ""
}

// SessionFromClaims rebuilds a session from verified access token claims.
func SessionFromClaims(claims *pkgAuth.AccessTokenClaims) Session {
	if claims == nil {
		return Session{}
	}
	return Session{
		UserID:         claims.UserID,
		OrganizationID: claims.OrganizationID,
		Role:           claims.Role,
		AccessID:       claims.ID,
	}
}

type sessionKey struct{}

// WithSession stores the session on the context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session placed by the auth middleware.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok && s.Valid()
}
