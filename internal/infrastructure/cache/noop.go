package cache

import (
	"context"
	"time"

	"github.com/sp3dr4/relink/internal/domain"
)

var (
	_ domain.Cache = (*NoOpCache)(nil)
	_ domain.Cache = (*MemoryCache)(nil)
)

// NoOpCache stands in when caching is disabled. Every lookup misses, so
// resolution always falls through to the durable store.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (*NoOpCache) Get(context.Context, string) (string, error) {
	return "", domain.ErrCacheMiss
}

// Set discards the entry but keeps the TTL contract of the real adapters.
func (*NoOpCache) Set(_ context.Context, _, _ string, ttl time.Duration) error {
	if ttl.Truncate(time.Second) < time.Second {
		return domain.ErrInvalidTTL
	}
	return nil
}

func (*NoOpCache) Ping(context.Context) error { return nil }
