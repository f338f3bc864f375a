package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sp3dr4/relink/internal/domain"
)

// KeyPrefix namespaces cache entries within the redis database.
const KeyPrefix = "url:"

var _ domain.Cache = (*RedisCache)(nil)

// RedisCache stores short code -> original URL as plain strings with a native
// redis expiry, so entries vanish on their own once the record expires.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger.With("component", "redis_cache"),
	}
}

func (c *RedisCache) Get(ctx context.Context, shortCode string) (string, error) {
	key := Key(shortCode)
	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return val, nil
	case errors.Is(err, redis.Nil):
		return "", domain.ErrCacheMiss
	default:
		return "", c.unavailable("get", key, err)
	}
}

// Set stores originalURL under shortCode. ttl is truncated to whole seconds
// and must leave at least one.
func (c *RedisCache) Set(ctx context.Context, shortCode, originalURL string, ttl time.Duration) error {
	ttl = ttl.Truncate(time.Second)
	if ttl < time.Second {
		return domain.ErrInvalidTTL
	}

	key := Key(shortCode)
	if err := c.client.Set(ctx, key, originalURL, ttl).Err(); err != nil {
		return c.unavailable("set", key, err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return c.unavailable("ping", "", err)
	}
	return nil
}

// Key is the redis key holding the entry for shortCode.
func Key(shortCode string) string {
	return KeyPrefix + shortCode
}

func (c *RedisCache) unavailable(op, key string, err error) error {
	c.logger.Debug("Redis command failed", "op", op, "key", key, "error", err)
	return fmt.Errorf("%w: redis %s: %v", domain.ErrCacheUnavailable, op, err)
}
