package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sp3dr4/relink/internal/domain"
)

// MemoryCache keeps entries in process, each with its own expiry. It suits a
// single instance; separate processes do not share entries.
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (c *MemoryCache) Get(_ context.Context, shortCode string) (string, error) {
	v, ok := c.store.Get(shortCode)
	if !ok {
		return "", domain.ErrCacheMiss
	}
	url, ok := v.(string)
	if !ok {
		c.store.Delete(shortCode)
		return "", domain.ErrCacheMiss
	}
	return url, nil
}

func (c *MemoryCache) Set(_ context.Context, shortCode, originalURL string, ttl time.Duration) error {
	ttl = ttl.Truncate(time.Second)
	if ttl < time.Second {
		return domain.ErrInvalidTTL
	}
	c.store.Set(shortCode, originalURL, ttl)
	return nil
}

func (c *MemoryCache) Ping(_ context.Context) error {
	return nil
}
