package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTryAcquireIsExclusive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	locker, err := New(NewMemoryStore(), time.Minute)
	require.NoError(t, err)

	first, ok, err := locker.TryAcquire(ctx, "ts:lock:table:1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryAcquire(ctx, "ts:lock:table:1")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = locker.Acquire(ctx, "ts:lock:table:1")
	require.ErrorIs(t, err, ErrHeld)

	other, ok, err := locker.TryAcquire(ctx, "ts:lock:table:2")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, first.Release(ctx))
	require.NoError(t, first.Release(ctx))

	again, ok, err := locker.TryAcquire(ctx, "ts:lock:table:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ts:lock:table:1", again.Key())
}

func TestReleaseSkipsForeignOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()
	locker, err := New(store, time.Minute)
	require.NoError(t, err)

	h, ok, err := locker.TryAcquire(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	// simulate expiry followed by another owner taking the key
	require.NoError(t, store.Del(ctx, "k"))
	_, _ = store.SetNX(ctx, "k", "someone-else", time.Minute)

	require.NoError(t, h.Release(ctx))
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "someone-else", value)
}

func TestMemoryStoreExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	ok, err := store.SetNX(ctx, "k", "a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	ok, err = store.SetNX(ctx, "k", "b", time.Second)
	require.NoError(t, err)
	require.True(t, ok, "expired entries can be re-acquired")
}

func TestMutex(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	locker, err := New(NewMemoryStore(), 0)
	require.NoError(t, err)
	require.Equal(t, defaultTTL, locker.TTL())

	a, err := NewMutex(locker, "cron")
	require.NoError(t, err)
	b, err := NewMutex(locker, "cron")
	require.NoError(t, err)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, b.Release(ctx))

	require.NoError(t, a.Release(ctx))
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

type failingStore struct{}

func (failingStore) SetNX(context.Context, string, any, time.Duration) (bool, error) {
	return false, errors.New("down")
}
func (failingStore) Get(context.Context, string) (string, error) { return "", errors.New("down") }
func (failingStore) Del(context.Context, ...string) error       { return errors.New("down") }

func TestStoreErrorsPropagate(t *testing.T) {
	t.Parallel()
	locker, err := New(failingStore{}, time.Second)
	require.NoError(t, err)
	_, _, err = locker.TryAcquire(context.Background(), "k")
	require.Error(t, err)

	_, err = New(nil, time.Second)
	require.Error(t, err)
}
