package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRateStore) RateLimitKey(scope string) string {
	return "ts:rl:" + scope
}

func okStatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func signInRequest(ip, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/sign-in", strings.NewReader(body))
	req.RemoteAddr = ip + ":5678"
	return req
}

func TestAuthRateLimitPassesBodyThrough(t *testing.T) {
	policy := NewAuthRateLimitPolicy("sign-in", time.Minute, 2, 2)
	var seen string
	handler := AuthRateLimit(policy, newFakeRateStore(), logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seen = string(raw)
		w.WriteHeader(http.StatusOK)
	}))

	body := `{"email":"server@example.com","password":"secret"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signInRequest("1.2.3.4", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, seen)
}

func TestAuthRateLimitEmailBudget(t *testing.T) {
	store := newFakeRateStore()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("sign-in", time.Minute, 0, 2), store, logger.Nop())(okStatusHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		// case and whitespace do not buy a fresh budget
		email := []string{"host@example.com", " Host@Example.com", "HOST@example.com "}[i]
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, signInRequest("1.2.3.4", `{"email":"`+email+`","password":"x"}`))
		codes = append(codes, rec.Code)

		if i == 2 {
			env := struct {
				Error struct{ Code string } `json:"error"`
			}{}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
			assert.Equal(t, string(pkgerrors.CodeRateLimit), env.Error.Code)
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	for key := range store.counts {
		assert.NotContains(t, key, "example.com", "emails must be hashed in keys")
	}
}

func TestAuthRateLimitIPBudget(t *testing.T) {
	handler := AuthRateLimit(NewAuthRateLimitPolicy("sign-up", time.Minute, 1, 0), newFakeRateStore(), nil)(okStatusHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, signInRequest("5.6.7.8", `{}`))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, signInRequest("5.6.7.8", `{}`))
	other := httptest.NewRecorder()
	handler.ServeHTTP(other, signInRequest("5.6.7.9", `{}`))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestAuthRateLimitUsesForwardedFor(t *testing.T) {
	store := newFakeRateStore()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("sign-in", time.Minute, 5, 0), store, nil)(okStatusHandler())

	req := signInRequest("10.0.0.1", `{}`)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, int64(1), store.counts["ts:rl:ip:sign-in:203.0.113.9"])
}

func TestAuthRateLimitKeysAreNamespacedPerPolicy(t *testing.T) {
	store := newFakeRateStore()
	signIn := AuthRateLimit(NewAuthRateLimitPolicy("sign-in", time.Minute, 1, 0), store, nil)
	signUp := AuthRateLimit(NewAuthRateLimitPolicy("Sign-Up ", time.Minute, 1, 0), store, nil)

	for _, h := range []http.Handler{signIn(okStatusHandler()), signUp(okStatusHandler())} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, signInRequest("9.9.9.9", `{}`))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, int64(1), store.counts["ts:rl:ip:sign-in:9.9.9.9"])
	assert.Equal(t, int64(1), store.counts["ts:rl:ip:sign-up:9.9.9.9"])
}

func TestAuthRateLimitFailsClosedOnStoreError(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	handler := AuthRateLimit(NewAuthRateLimitPolicy("sign-in", time.Minute, 1, 0), store, nil)(okStatusHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signInRequest("1.1.1.1", `{}`))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRateLimitDisabledPolicyIsPassThrough(t *testing.T) {
	store := newFakeRateStore()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("sign-in", 0, 1, 1), store, nil)(okStatusHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, signInRequest("1.1.1.1", `{"email":"a@b.co"}`))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, store.counts)
}
