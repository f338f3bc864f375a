package redis

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sp3dr4/relink/config"
)

// NewClient builds a client whose every wait is bounded, so an unreachable
// server turns into fast errors instead of stalled requests. It does not dial.
func NewClient(cfg *config.Config) *redis.Client {
	rc := cfg.Cache.Redis
	readTimeout := config.Duration(rc.ReadTimeout, 500*time.Millisecond)

	return redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     rc.Password,
		DB:           rc.DB,
		DialTimeout:  config.Duration(rc.DialTimeout, 2*time.Second),
		ReadTimeout:  readTimeout,
		WriteTimeout: config.Duration(rc.WriteTimeout, 500*time.Millisecond),
		PoolSize:     rc.PoolSize,
		PoolTimeout:  readTimeout + time.Second,
		MaxRetries:   1,
	})
}
