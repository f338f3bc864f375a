package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss means the key is absent, whether never written or expired.
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheUnavailable wraps any transport failure talking to the cache.
	ErrCacheUnavailable = errors.New("cache unavailable")
	ErrInvalidTTL       = errors.New("cache ttl must be at least one second")
)

// Cache defines the volatile short code -> original URL store.
type Cache interface {
	// Get retrieves the original URL for shortCode, or ErrCacheMiss.
	Get(ctx context.Context, shortCode string) (string, error)

	// Set stores originalURL under shortCode for ttl, which must be at least
	// one second.
	Set(ctx context.Context, shortCode, originalURL string, ttl time.Duration) error

	// Ping checks if the cache is available
	Ping(ctx context.Context) error
}
