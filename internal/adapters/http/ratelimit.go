package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sp3dr4/relink/internal/pkg/logging"
)

const rateLimitKeyPrefix = "ratelimit"

// RateLimiter counts requests per client IP in fixed windows stored in redis.
type RateLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
	logger      *slog.Logger
}

func NewRateLimiter(client *redis.Client, maxRequests int, window time.Duration, logger *slog.Logger) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
		logger:      logger,
	}
}

// Allow increments the counter for key and reports whether the request fits
// in the current window, along with the number of requests left.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	redisKey := rateLimitKeyPrefix + ":" + key

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return false, 0, err
	}

	count := incr.Val()
	remaining := max(0, l.maxRequests-int(count))
	return count <= int64(l.maxRequests), remaining, nil
}

// Middleware rejects clients over the limit with 429. Requests pass through
// when redis cannot be reached.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 200*time.Millisecond)
		defer cancel()

		allowed, remaining, err := l.Allow(ctx, clientIP(r))
		if err != nil {
			logging.FromContextOr(r.Context(), l.logger).Warn("Rate limiter unavailable, allowing request", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.maxRequests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			respondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr, which middleware.RealIP has
// already replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
