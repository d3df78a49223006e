package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/tableside-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

// emailPeekLimit bounds how much of a sign-in body is buffered to find the email.
const emailPeekLimit = 64 << 10

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// AuthRateLimitPolicy is a fixed-window budget for one auth endpoint, counted
// separately per client IP and per email address. A zero limit disables that
// counter.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

// bucket is one counter a request is charged against.
type bucket struct {
	scope string
	id    string
	limit int
}

// AuthRateLimit rejects sign-in and sign-up attempts over the policy budget
// with 429 and a Retry-After header. Counter failures fail closed.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	if store == nil || policy.window <= 0 || (policy.ipLimit <= 0 && policy.emailLimit <= 0) {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var buckets []bucket
			if policy.ipLimit > 0 {
				if ip := clientIP(r); ip != "" {
					buckets = append(buckets, bucket{scope: "ip", id: ip, limit: policy.ipLimit})
				}
			}
			if policy.emailLimit > 0 {
				email, err := peekEmail(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				if email != "" {
					buckets = append(buckets, bucket{scope: "email", id: sha256Hex(email), limit: policy.emailLimit})
				}
			}

			for _, b := range buckets {
				key := store.RateLimitKey(b.scope + ":" + policy.name + ":" + b.id)
				count, err := store.IncrWithTTL(ctx, key, policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(b.limit) {
					rejectOverLimit(ctx, logg, w, policy, b, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectOverLimit(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, b bucket, count int64) {
	if logg != nil {
		fields := map[string]any{
			"policy":   policy.name,
			"scope":    b.scope,
			"attempts": count,
			"limit":    b.limit,
		}
		// emails are only ever logged hashed
		if b.scope == "ip" {
			fields["ip"] = b.id
		} else {
			fields["email_hash"] = b.id
		}
		logg.Warn(logg.WithFields(ctx, fields), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// peekEmail reads the email field from a JSON body and restores the body for
// the next handler.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, emailPeekLimit))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))

	var probe struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &probe) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(probe.Email)), nil
}

// clientIP prefers the first X-Forwarded-For hop set by the load balancer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
