package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/famcash/push-server/internal/metrics"
	"github.com/famcash/push-server/internal/store"
)

// RateLimit defines limits for an endpoint pattern.
type RateLimit struct {
	Requests int64
	Window   time.Duration
}

// RateLimiter implements fixed-window rate limiting backed by Redis.
// A nil Redis store disables limiting entirely.
type RateLimiter struct {
	redis  *store.RedisStore
	limits map[string]RateLimit
	logger zerolog.Logger
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(redis *store.RedisStore, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redis,
		logger: logger,
		limits: map[string]RateLimit{
			// Generous cap; a family fan-out is human- or cron-triggered,
			// never high-frequency.
			"POST /notify": {60, time.Minute},
		},
	}
}

// Middleware enforces the configured limits.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.redis == nil {
			next.ServeHTTP(w, r)
			return
		}

		pattern := r.Method + " " + r.URL.Path
		limit, ok := rl.limits[pattern]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		window := time.Now().Unix() / int64(limit.Window.Seconds())
		key := "ratelimit:" + pattern + ":" + clientIP(r) + ":" + strconv.FormatInt(window, 10)

		count, err := rl.redis.IncrWindow(r.Context(), key, limit.Window)
		if err != nil {
			// Fail open: a Redis outage must not block deliveries
			rl.logger.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		if count > limit.Requests {
			metrics.RateLimitHits.WithLabelValues(pattern).Inc()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(limit.Window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the request's client address. chi's RealIP middleware has
// already resolved proxy headers into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
