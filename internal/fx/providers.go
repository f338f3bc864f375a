package fx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/sp3dr4/relink/config"
	"github.com/sp3dr4/relink/internal/application"
	"github.com/sp3dr4/relink/internal/domain"
	cacheImpl "github.com/sp3dr4/relink/internal/infrastructure/cache"
	"github.com/sp3dr4/relink/internal/infrastructure/database"
	memoryRepo "github.com/sp3dr4/relink/internal/infrastructure/memory"
	postgresRepo "github.com/sp3dr4/relink/internal/infrastructure/postgres"
	redisCache "github.com/sp3dr4/relink/internal/infrastructure/redis"
	sqliteRepo "github.com/sp3dr4/relink/internal/infrastructure/sqlite"
	"github.com/sp3dr4/relink/internal/pkg/logging"
	"github.com/sp3dr4/relink/internal/pkg/metrics"
)

// ProvideLogger creates and configures the application logger
func ProvideLogger(cfg *config.Config) *slog.Logger {
	logger := logging.New(os.Stdout, cfg.Logging.Level)
	slog.SetDefault(logger)
	return logger
}

func poolOptions(cfg *config.Config) database.PoolOptions {
	return database.PoolOptions{
		Size:           cfg.Database.Pool.Size,
		MaxOverflow:    cfg.Database.Pool.MaxOverflow,
		AcquireTimeout: cfg.PoolTimeout(),
	}
}

// openPool connects, migrates and registers pool metrics for a SQL store.
func openPool(cfg *config.Config, registry metrics.Registry, driverName, dsn string) (*database.Pool, error) {
	pool, err := database.Open(driverName, dsn, poolOptions(cfg))
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(pool, driverName); err != nil {
		_ = pool.Close()
		return nil, err
	}
	if err := registry.RegisterDBStats(pool.DB().DB, cfg.Database.Type); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to register database metrics: %w", err)
	}
	return pool, nil
}

// ProvideRepository creates the appropriate repository based on configuration.
// SQL stores are opened and migrated before the repository is returned.
func ProvideRepository(cfg *config.Config, registry metrics.Registry, logger *slog.Logger) (domain.URLRepository, error) {
	switch cfg.Database.Type {
	case "memory":
		logger.Info("Using in-memory repository")
		return memoryRepo.NewURLRepository(), nil

	case "sqlite":
		dbPath := cfg.GetDatabaseURL()
		logger.Info("Using SQLite repository", "path", dbPath)

		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}

		pool, err := openPool(cfg, registry, "sqlite3", dbPath)
		if err != nil {
			return nil, err
		}
		return sqliteRepo.NewURLRepository(pool), nil

	case "postgres":
		logger.Info("Using PostgreSQL repository",
			"pool_size", cfg.Database.Pool.Size,
			"max_overflow", cfg.Database.Pool.MaxOverflow,
		)

		pool, err := openPool(cfg, registry, "postgres", cfg.GetDatabaseURL())
		if err != nil {
			return nil, err
		}
		return postgresRepo.NewURLRepository(pool), nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}

// ProvideRedisClient returns nil unless the redis cache is enabled. The client
// dials lazily, so an unreachable server does not stop startup.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Cache.Enabled || cfg.Cache.Type != "redis" {
		return nil
	}
	return redisCache.NewClient(cfg)
}

// ProvideCache picks the cache backend. A redis server that does not answer
// at startup only produces a warning; the client reconnects on later calls.
func ProvideCache(cfg *config.Config, client *redis.Client, logger *slog.Logger) (domain.Cache, error) {
	if !cfg.Cache.Enabled {
		logger.Info("Cache disabled")
		return cacheImpl.NewNoOpCache(), nil
	}

	switch cfg.Cache.Type {
	case "redis":
		cache := redisCache.NewRedisCache(client, logger)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("Redis unreachable, continuing without cache until it recovers",
				"addr", cfg.RedisAddr(),
				"error", err,
			)
		} else {
			logger.Info("Using Redis cache", "addr", cfg.RedisAddr())
		}
		return cache, nil

	case "memory":
		logger.Info("Using in-memory cache")
		return cacheImpl.NewMemoryCache(time.Minute), nil

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Cache.Type)
	}
}

// ProvideCodeGenerator checks candidate codes against the repository
func ProvideCodeGenerator(cfg *config.Config, repo domain.URLRepository) *application.CodeGenerator {
	return application.NewCodeGenerator(repo, cfg.App.ShortCodeLength, cfg.App.MaxGenerationAttempts)
}

// ProvideSettings maps configuration onto the service settings
func ProvideSettings(cfg *config.Config) application.Settings {
	return application.Settings{
		BaseURL:          cfg.App.BaseURL,
		ExpirationWindow: cfg.ExpirationWindow(),
		MaxURLLength:     cfg.App.MaxURLLength,
	}
}

// ProvideMetricsRegistry falls back to a no-op registry when metrics are off
func ProvideMetricsRegistry(cfg *config.Config) (metrics.Registry, error) {
	if !cfg.Metrics.Enabled {
		return metrics.NewNoOpRegistry(), nil
	}
	return metrics.NewPrometheusRegistry(cfg.Metrics)
}

// RepositoryParams holds what the repository hooks need.
type RepositoryParams struct {
	fx.In

	Repository domain.URLRepository
	Logger     *slog.Logger
}

// RegisterRepositoryHooks closes the store's connection pool on shutdown.
func RegisterRepositoryHooks(lc fx.Lifecycle, params RepositoryParams) {
	lc.Append(fx.StopHook(func() error {
		if err := params.Repository.Close(); err != nil {
			params.Logger.Error("Failed to close repository", "error", err)
			return err
		}
		params.Logger.Info("Repository closed")
		return nil
	}))
}

// CacheParams holds what the cache hooks need.
type CacheParams struct {
	fx.In

	Client *redis.Client `optional:"true"`
	Logger *slog.Logger
}

// RegisterCacheHooks closes the redis client, shared by the cache and the rate
// limiter, on shutdown.
func RegisterCacheHooks(lc fx.Lifecycle, params CacheParams) {
	if params.Client == nil {
		return
	}
	lc.Append(fx.StopHook(func() error {
		if err := params.Client.Close(); err != nil {
			params.Logger.Error("Failed to close redis client", "error", err)
			return err
		}
		params.Logger.Info("Redis client closed")
		return nil
	}))
}
