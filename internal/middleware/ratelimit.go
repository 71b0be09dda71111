package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/firefruitmoney/internal/handlers"
	"github.com/HammerMeetNail/firefruitmoney/internal/logging"
)

// Counter is the subset of the redis client the limiter needs.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// KeyFunc extracts the bucket key for a request. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

type RateLimiter struct {
	counter  Counter
	limit    int64
	window   time.Duration
	prefix   string
	keyFunc  KeyFunc
	failOpen bool
	now      func() time.Time
}

func NewRateLimiter(counter Counter, limit int64, window time.Duration, prefix string, keyFunc KeyFunc, failOpen bool) *RateLimiter {
	if keyFunc == nil {
		keyFunc = GetClientIP
	}
	return &RateLimiter{
		counter:  counter,
		limit:    limit,
		window:   window,
		prefix:   prefix,
		keyFunc:  keyFunc,
		failOpen: failOpen,
		now:      time.Now,
	}
}

// NewAuthRateLimiter limits credential endpoints per client IP.
func NewAuthRateLimiter(counter Counter, perMinute int64) *RateLimiter {
	return NewRateLimiter(counter, perMinute, time.Minute, "ratelimit:auth:", GetClientIP, true)
}

// NewAPIRateLimiter limits the API per user, falling back to client IP.
func NewAPIRateLimiter(counter Counter) *RateLimiter {
	return NewRateLimiter(counter, 120, time.Minute, "ratelimit:api:", func(r *http.Request) string {
		if user := handlers.GetUserFromContext(r.Context()); user != nil {
			return "user:" + user.ID.String()
		}
		return "ip:" + GetClientIP(r)
	}, true)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFunc(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, reset, err := rl.isAllowed(r.Context(), rl.prefix+key)
		if err != nil {
			logging.Warn("Rate limiter unavailable", map[string]interface{}{
				"prefix": rl.prefix,
				"error":  err.Error(),
			})
			if rl.failOpen {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable.")
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset))

		if !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", max(reset-rl.now().Unix(), 1)))
			writeError(w, http.StatusTooManyRequests, "Request was throttled.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isAllowed counts the request in a fixed window bucket.
func (rl *RateLimiter) isAllowed(ctx context.Context, key string) (bool, int64, int64, error) {
	if rl.counter == nil {
		return false, 0, 0, fmt.Errorf("no redis client configured")
	}

	now := rl.now()
	windowStart := now.Truncate(rl.window)
	reset := windowStart.Add(rl.window).Unix()
	bucket := fmt.Sprintf("%s:%d", key, windowStart.Unix())

	count, err := rl.counter.Incr(ctx, bucket).Result()
	if err != nil {
		return false, 0, reset, fmt.Errorf("incrementing %s: %w", bucket, err)
	}
	if count == 1 {
		if err := rl.counter.Expire(ctx, bucket, rl.window).Err(); err != nil {
			return false, 0, reset, fmt.Errorf("setting expiry on %s: %w", bucket, err)
		}
	}

	remaining := rl.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.limit, remaining, reset, nil
}

// GetClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's remote address.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
