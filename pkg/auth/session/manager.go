package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/pkg/config"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	"github.com/angelmondragon/tableside-backend/pkg/redis"
)

const refreshTokenBytes = 32

// ErrInvalidRefreshToken covers every refresh failure a caller may learn
// about: unknown session, wrong token, replayed token or a corrupt record.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

var errMissingAccessID = errors.New("access id is required")

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// Record is what a refresh session remembers about the signed-in employee.
// Rotation re-mints access tokens from the record, never from the expired token.
type Record struct {
	UserID         uuid.UUID          `json:"userId"`
	OrganizationID uuid.UUID          `json:"organizationId"`
	Role           enums.EmployeeRole `json:"role"`
	RefreshToken   string             `json:"refreshToken"`
	IssuedAt       time.Time          `json:"issuedAt"`
}

func (r Record) validate() error {
	if r.UserID == uuid.Nil || r.OrganizationID == uuid.Nil {
		return errors.New("session user and organization are required")
	}
	if !r.Role.IsValid() {
		return fmt.Errorf("invalid session role %q", r.Role)
	}
	return nil
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Manager keeps one refresh session per access token id (the JWT jti). A
// session is single use: Rotate consumes it and opens its successor.
type Manager struct {
	kv  store
	ttl time.Duration
	now func() time.Time
}

func NewManager(client *redis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return newManager(client, cfg)
}

func newManager(kv store, cfg config.JWTConfig) (*Manager, error) {
	refresh := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case refresh <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case refresh <= access:
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", refresh, access)
	}
	return &Manager{kv: kv, ttl: refresh, now: time.Now}, nil
}

// NewAccessID produces the identifier used as the JWT jti and Redis key suffix.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session under accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, rec Record) (string, error) {
	if blank(accessID) {
		return "", errMissingAccessID
	}
	if err := rec.validate(); err != nil {
		return "", err
	}
	rec, err := m.open(ctx, accessID, rec)
	if err != nil {
		return "", err
	}
	return rec.RefreshToken, nil
}

// Rotate consumes the session stored under oldAccessID and, when provided
// matches its refresh token, reopens it under a fresh access id. A mismatch
// still burns the session, so a leaked token that loses the race to its
// owner (or vice versa) forces a new sign-in.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (string, Record, error) {
	if blank(oldAccessID) || blank(provided) {
		return "", Record{}, ErrInvalidRefreshToken
	}
	raw, err := m.kv.GetDel(ctx, m.kv.AccessSessionKey(oldAccessID))
	if err != nil {
		return "", Record{}, notFoundAsInvalid(err)
	}
	rec, err := decode(raw)
	if err != nil {
		return "", Record{}, err
	}
	if subtle.ConstantTimeCompare([]byte(rec.RefreshToken), []byte(provided)) != 1 {
		return "", Record{}, ErrInvalidRefreshToken
	}

	accessID := NewAccessID()
	rec, err = m.open(ctx, accessID, rec)
	if err != nil {
		return "", Record{}, err
	}
	return accessID, rec, nil
}

// Lookup returns the live session for accessID without consuming it.
func (m *Manager) Lookup(ctx context.Context, accessID string) (Record, error) {
	if blank(accessID) {
		return Record{}, ErrInvalidRefreshToken
	}
	raw, err := m.kv.Get(ctx, m.kv.AccessSessionKey(accessID))
	if err != nil {
		return Record{}, notFoundAsInvalid(err)
	}
	return decode(raw)
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if blank(accessID) {
		return errMissingAccessID
	}
	return m.kv.Del(ctx, m.kv.AccessSessionKey(accessID))
}

// HasSession reports whether the access id still has a live session. Signed-out
// access tokens fail here even before they expire.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if blank(accessID) {
		return false, errMissingAccessID
	}
	_, err := m.kv.Get(ctx, m.kv.AccessSessionKey(accessID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}

func (m *Manager) open(ctx context.Context, accessID string, rec Record) (Record, error) {
	token, err := newRefreshToken()
	if err != nil {
		return Record{}, err
	}
	rec.RefreshToken = token
	rec.IssuedAt = m.now().UTC()

	raw, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("encode session: %w", err)
	}
	if err := m.kv.Set(ctx, m.kv.AccessSessionKey(accessID), string(raw), m.ttl); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func decode(raw string) (Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.RefreshToken == "" {
		return Record{}, ErrInvalidRefreshToken
	}
	return rec, nil
}

func notFoundAsInvalid(err error) error {
	if errors.Is(err, redis.Nil) {
		return ErrInvalidRefreshToken
	}
	return err
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
