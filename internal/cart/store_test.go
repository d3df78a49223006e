package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tableside-backend/pkg/redis"
)

type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type keyerFunc func(org, key string) string

func (f keyerFunc) CartKey(org, key string) string { return f(org, key) }

func ctx() context.Context { return context.Background() }

func newTestStore(kv *memoryKV) *Store {
	return newStore(kv, &redis.Client{}, 2*time.Hour, nil)
}

func TestKeyFallsBackToAnon(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cart:12", Key("12"))
	assert.Equal(t, "cart:anon", Key(""))
	assert.Equal(t, "cart:anon", Key("   "))
}

func TestLoadNeverSavedReturnsEmpty(t *testing.T) {
	t.Parallel()

	store := newTestStore(newMemoryKV())
	lines, err := store.Load(ctx(), uuid.New(), "7")
	require.NoError(t, err)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	kv := newMemoryKV()
	store := newTestStore(kv)
	org := uuid.New()
	lines := []Line{
		{ID: "l1", Title: "Pho", UnitPrice: decimal.RequireFromString("12.95"), Qty: 2, ItemID: uuid.New(), Notes: "extra lime",
			Modifiers: NewLegacyModifiers(LegacyModifiers{NoodleSize: "thin", ExtraMeats: []string{"brisket"}})},
		{ID: "l2", Title: "Spring Rolls", UnitPrice: decimal.RequireFromString("7.5"), Qty: 1, ItemID: uuid.New(), Modifiers: NoModifiers()},
	}

	require.NoError(t, store.Save(ctx(), org, "12", lines))
	loaded, err := store.Load(ctx(), org, "12")
	require.NoError(t, err)
	assert.Equal(t, lines, loaded)

	key := "ts:" + org.String() + ":cart:12"
	assert.Contains(t, kv.data, key)
	assert.Equal(t, 2*time.Hour, kv.ttls[key])
}

func TestTablesDoNotShareState(t *testing.T) {
	t.Parallel()

	store := newTestStore(newMemoryKV())
	org := uuid.New()
	other := uuid.New()

	require.NoError(t, store.Save(ctx(), org, "1", []Line{{ID: "x", Title: "Tea", Qty: 1, Modifiers: NoModifiers()}}))

	for _, probe := range []struct {
		org   uuid.UUID
		table string
	}{{org, "2"}, {org, ""}, {other, "1"}} {
		lines, err := store.Load(ctx(), probe.org, probe.table)
		require.NoError(t, err)
		assert.Empty(t, lines, "org=%s table=%q", probe.org, probe.table)
	}
}

func TestCorruptCartLoadsEmpty(t *testing.T) {
	t.Parallel()

	kv := newMemoryKV()
	store := newTestStore(kv)
	org := uuid.New()
	kv.data["ts:"+org.String()+":cart:3"] = "{not json"

	lines, err := store.Load(ctx(), org, "3")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestClearRemovesCart(t *testing.T) {
	t.Parallel()

	store := newTestStore(newMemoryKV())
	org := uuid.New()
	require.NoError(t, store.Save(ctx(), org, "5", []Line{{ID: "x", Qty: 1, Modifiers: NoModifiers()}}))
	require.NoError(t, store.Clear(ctx(), org, "5"))

	lines, err := store.Load(ctx(), org, "5")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestBackendErrorsSurface(t *testing.T) {
	t.Parallel()

	kv := newMemoryKV()
	kv.err = errors.New("connection refused")
	store := newTestStore(kv)

	_, err := store.Load(ctx(), uuid.New(), "1")
	assert.Error(t, err)
	assert.Error(t, store.Save(ctx(), uuid.New(), "1", nil))
}
