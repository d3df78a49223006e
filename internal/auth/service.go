package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/internal/organizations"
	pkgAuth "github.com/angelmondragon/tableside-backend/pkg/auth"
	"github.com/angelmondragon/tableside-backend/pkg/auth/session"
	"github.com/angelmondragon/tableside-backend/pkg/config"
	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
	"github.com/angelmondragon/tableside-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

type accountRepository interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	ListMemberships(ctx context.Context, userID uuid.UUID) ([]organizations.Membership, error)
	GetMembership(ctx context.Context, userID, organizationID uuid.UUID) (*organizations.Membership, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, rec session.Record) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, session.Record, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Accounts       accountRepository
	Tx             txRunner
	Sessions       sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

// Service signs employees in and out and keeps their refresh sessions.
type Service struct {
	accounts    accountRepository
	tx          txRunner
	sessions    sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs the session provider.
func NewService(params ServiceParams) (*Service, error) {
	if params.Accounts == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		accounts:    params.Accounts,
		tx:          params.Tx,
		sessions:    params.Sessions,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		logg:        logg,
		now:         time.Now,
	}, nil
}

// SignIn verifies credentials and opens a session on one of the user's organizations.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*TokenResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	memberships, err := s.accounts.ListMemberships(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list organizations")
	}
	if len(memberships) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	active := memberships[0]
	if req.OrganizationID != nil {
		found := false
		for _, m := range memberships {
			if m.OrganizationID == *req.OrganizationID {
				active, found = m, true
				break
			}
		}
		if !found {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not an employee of this organization")
		}
	}

	now := s.now().UTC()
	if err := s.accounts.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	resp, err := s.issue(ctx, now, session.Record{
		UserID:         user.ID,
		OrganizationID: active.OrganizationID,
		Role:           active.Role,
	})
	if err != nil {
		return nil, err
	}
	resp.User = organizations.UserFromModel(user)
	resp.Organizations = summarize(memberships)

	ctx = s.logg.WithOrganizationID(s.logg.WithUserID(ctx, user.ID.String()), active.OrganizationID.String())
	s.logg.Info(ctx, "employee signed in")
	return resp, nil
}

// SignOut revokes the refresh session behind the access token.
func (s *Service) SignOut(ctx context.Context, sess Session) error {
	if strings.TrimSpace(sess.AccessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	if err := s.sessions.Revoke(ctx, sess.AccessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// Refresh rotates the refresh session and mints a new access token for the same employee.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, strings.TrimSpace(req.AccessToken))
	if err != nil || strings.TrimSpace(claims.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	accessID, rec, err := s.sessions.Rotate(ctx, claims.ID, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}
	if rec.UserID != claims.UserID {
		_ = s.sessions.Revoke(ctx, accessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	// membership may have been revoked or changed role since sign-in
	membership, err := s.accounts.GetMembership(ctx, rec.UserID, rec.OrganizationID)
	if err != nil {
		_ = s.sessions.Revoke(ctx, accessID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "employee no longer belongs to organization")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load membership")
	}
	rec.Role = membership.Role

	now := s.now().UTC()
	token, err := s.mint(now, accessID, rec)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken:  token,
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    s.expiry(now),
		Session:      sessionFromRecord(accessID, rec),
	}, nil
}

// Current describes the user and organization behind sess.
func (s *Service) Current(ctx context.Context, sess Session) (*SessionResponse, error) {
	user, err := s.accounts.FindUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	membership, err := s.accounts.GetMembership(ctx, sess.UserID, sess.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not an employee of this organization")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load membership")
	}
	return &SessionResponse{
		Session: sess,
		User:    organizations.UserFromModel(user),
		Organization: OrganizationSummary{
			ID:   membership.OrganizationID,
			Name: membership.OrganizationName,
		},
	}, nil
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.ToLower(strings.TrimSpace(email))
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.accounts.FindUserByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if security.NeedsRehash(user.PasswordHash, s.passwordCfg) {
		s.rehash(ctx, user, password)
	}
	return user, nil
}

// rehash upgrades a stored hash to the configured cost. Failures only cost
// another attempt on the next sign-in.
func (s *Service) rehash(ctx context.Context, user *models.User, password string) {
	ctx = s.logg.WithUserID(ctx, user.ID.String())
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err == nil {
		err = s.accounts.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.logg.Warn(ctx, "password rehash failed: "+err.Error())
		return
	}
	user.PasswordHash = hash
}

func (s *Service) issue(ctx context.Context, now time.Time, rec session.Record) (*TokenResponse, error) {
	accessID := session.NewAccessID()
	token, err := s.mint(now, accessID, rec)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.sessions.Generate(ctx, accessID, rec)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return &TokenResponse{
		AccessToken:  token,
		RefreshToken: refreshToken,
		ExpiresAt:    s.expiry(now),
		Session:      sessionFromRecord(accessID, rec),
	}, nil
}

func (s *Service) mint(now time.Time, accessID string, rec session.Record) (string, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:         rec.UserID,
		OrganizationID: rec.OrganizationID,
		Role:           rec.Role,
		JTI:            accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}

func (s *Service) expiry(now time.Time) time.Time {
	return now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute)
}

func sessionFromRecord(accessID string, rec session.Record) Session {
	return Session{
		UserID:         rec.UserID,
		OrganizationID: rec.OrganizationID,
		Role:           rec.Role,
		AccessID:       accessID,
	}
}
