package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 30 * time.Second

// ErrHeld is returned by Acquire when another owner holds the key.
var ErrHeld = errors.New("lock held by another owner")

// Store is the subset of redis commands a lock needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// Locker hands out owner-checked SETNX locks with a TTL.
type Locker struct {
	store Store
	ttl   time.Duration
}

// Handle is an acquired lock. Release is safe to call more than once.
type Handle struct {
	store Store
	key   string
	owner string
}

// New builds a Locker. A non-positive ttl falls back to 30s.
func New(store Store, ttl time.Duration) (*Locker, error) {
	if store == nil {
		return nil, errors.New("lock store required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Locker{store: store, ttl: ttl}, nil
}

// TTL reports how long an acquired key lives without release.
func (l *Locker) TTL() time.Duration {
	return l.ttl
}

// TryAcquire attempts to own key. ok is false when someone else holds it.
func (l *Locker) TryAcquire(ctx context.Context, key string) (*Handle, bool, error) {
	if key == "" {
		return nil, false, errors.New("lock key is required")
	}
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Handle{store: l.store, key: key, owner: owner}, true, nil
}

// Acquire is TryAcquire that reports contention as ErrHeld.
func (l *Locker) Acquire(ctx context.Context, key string) (*Handle, error) {
	h, ok, err := l.TryAcquire(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}
	return h, nil
}

// Key returns the locked key.
func (h *Handle) Key() string {
	if h == nil {
		return ""
	}
	return h.key
}

// Release frees the key only if this handle still owns it.
func (h *Handle) Release(ctx context.Context) error {
	if h == nil || h.owner == "" {
		return nil
	}
	value, err := h.store.Get(ctx, h.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			h.owner = ""
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != h.owner {
		h.owner = ""
		return nil
	}
	if err := h.store.Del(ctx, h.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	h.owner = ""
	return nil
}

// Mutex is a single-key lock with the Acquire/Release shape the cron service expects.
type Mutex struct {
	locker *Locker
	key    string
	held   *Handle
}

// NewMutex binds a Locker to one key.
func NewMutex(locker *Locker, key string) (*Mutex, error) {
	if locker == nil {
		return nil, errors.New("locker required")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	return &Mutex{locker: locker, key: key}, nil
}

func (m *Mutex) Acquire(ctx context.Context) (bool, error) {
	h, ok, err := m.locker.TryAcquire(ctx, m.key)
	if err != nil || !ok {
		return false, err
	}
	m.held = h
	return true, nil
}

func (m *Mutex) Release(ctx context.Context) error {
	if m.held == nil {
		return nil
	}
	err := m.held.Release(ctx)
	m.held = nil
	return err
}
