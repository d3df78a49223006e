package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/pkg/logger"
	"github.com/angelmondragon/tableside-backend/pkg/redis"
)

const anonTableKey = "anon"

// Key derives the cart key for a table identifier, falling back to the anonymous key.
func Key(tableIdentifier string) string {
	tableIdentifier = strings.TrimSpace(tableIdentifier)
	if tableIdentifier == "" {
		tableIdentifier = anonTableKey
	}
	return "cart:" + tableIdentifier
}

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type cartKeyer interface {
	CartKey(organizationID, cartKey string) string
}

// Store persists carts in redis under <namespace>:<org>:cart:<table>.
type Store struct {
	kv    kvStore
	keyer cartKeyer
	ttl   time.Duration
	logg  *logger.Logger
}

// NewStore builds a Store. ttl <= 0 keeps carts until cleared.
func NewStore(client *redis.Client, ttl time.Duration, logg *logger.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return newStore(client, client, ttl, logg), nil
}

func newStore(kv kvStore, keyer cartKeyer, ttl time.Duration, logg *logger.Logger) *Store {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{kv: kv, keyer: keyer, ttl: ttl, logg: logg}
}

func (s *Store) key(organizationID uuid.UUID, tableIdentifier string) string {
	org := ""
	if organizationID != uuid.Nil {
		org = organizationID.String()
	}
	return s.keyer.CartKey(org, Key(tableIdentifier))
}

// Load returns the saved lines. A missing or corrupt entry yields an empty cart.
func (s *Store) Load(ctx context.Context, organizationID uuid.UUID, tableIdentifier string) ([]Line, error) {
	key := s.key(organizationID, tableIdentifier)
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Line{}, nil
		}
		return nil, fmt.Errorf("load cart %s: %w", key, err)
	}

	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cart_key", key), fmt.Sprintf("discarding unreadable cart: %v", err))
		return []Line{}, nil
	}
	if lines == nil {
		lines = []Line{}
	}
	return lines, nil
}

func (s *Store) Save(ctx context.Context, organizationID uuid.UUID, tableIdentifier string, lines []Line) error {
	if lines == nil {
		lines = []Line{}
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	key := s.key(organizationID, tableIdentifier)
	if err := s.kv.Set(ctx, key, string(payload), s.ttl); err != nil {
		return fmt.Errorf("save cart %s: %w", key, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, organizationID uuid.UUID, tableIdentifier string) error {
	key := s.key(organizationID, tableIdentifier)
	if err := s.kv.Del(ctx, key); err != nil {
		return fmt.Errorf("clear cart %s: %w", key, err)
	}
	return nil
}
