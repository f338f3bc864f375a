package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	App       AppConfig       `mapstructure:"app"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Type     string         `mapstructure:"type"` // memory, sqlite, postgres
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Pool     PoolConfig     `mapstructure:"pool"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

// PoolConfig bounds the durable store connection pool. Size connections are
// kept idle, up to Size+MaxOverflow may be open, and callers wait at most
// Timeout to acquire one.
type PoolConfig struct {
	Size        int    `mapstructure:"size"`
	MaxOverflow int    `mapstructure:"max_overflow"`
	Timeout     string `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Type    string      `mapstructure:"type"` // redis, memory
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	PoolSize     int    `mapstructure:"pool_size"`
}

type AppConfig struct {
	BaseURL               string `mapstructure:"base_url"`
	ShortCodeLength       int    `mapstructure:"short_code_length"`
	MaxGenerationAttempts int    `mapstructure:"max_generation_attempts"`
	ExpirationDays        int    `mapstructure:"expiration_days"`
	MaxURLLength          int    `mapstructure:"max_url_length"`
}

type RateLimitConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MaxRequests int    `mapstructure:"max_requests"`
	Window      string `mapstructure:"window"`
}

type MetricsConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Path            string `mapstructure:"path"`
	Namespace       string `mapstructure:"namespace"`
	Subsystem       string `mapstructure:"subsystem"`
	CollectRuntime  bool   `mapstructure:"collect_runtime"`
	CollectDatabase bool   `mapstructure:"collect_database"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func Load() (*Config, error) {
	// A local .env is optional.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/relink/")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindLegacyEnv(v)

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.sqlite.path", "./data/relink.db")
	v.SetDefault("database.postgres.url", "")
	v.SetDefault("database.pool.size", 10)
	v.SetDefault("database.pool.max_overflow", 20)
	v.SetDefault("database.pool.timeout", "30s")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.type", "redis")
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.dial_timeout", "2s")
	v.SetDefault("cache.redis.read_timeout", "500ms")
	v.SetDefault("cache.redis.write_timeout", "500ms")
	v.SetDefault("cache.redis.pool_size", 20)

	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.short_code_length", 8)
	v.SetDefault("app.max_generation_attempts", 10)
	v.SetDefault("app.expiration_days", 30)
	v.SetDefault("app.max_url_length", 2048)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.max_requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "relink")
	v.SetDefault("metrics.subsystem", "")
	v.SetDefault("metrics.collect_runtime", true)
	v.SetDefault("metrics.collect_database", true)

	v.SetDefault("logging.level", "info")
}

// bindLegacyEnv keeps the flat variable names used by existing deployments.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("database.sqlite.path", "DATABASE_SQLITE_PATH", "SQLITE_DATABASE_PATH", "DATABASE_PATH")
	_ = v.BindEnv("database.postgres.url", "DATABASE_POSTGRES_URL", "DATABASE_URL")
	_ = v.BindEnv("cache.redis.host", "CACHE_REDIS_HOST", "REDIS_HOST")
	_ = v.BindEnv("cache.redis.port", "CACHE_REDIS_PORT", "REDIS_PORT")
	_ = v.BindEnv("cache.redis.password", "CACHE_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("cache.redis.db", "CACHE_REDIS_DB", "REDIS_DB")
	_ = v.BindEnv("app.expiration_days", "APP_EXPIRATION_DAYS", "DEFAULT_EXPIRATION_DAYS")
	_ = v.BindEnv("app.short_code_length", "APP_SHORT_CODE_LENGTH", "SHORT_CODE_LENGTH")
	_ = v.BindEnv("app.max_url_length", "APP_MAX_URL_LENGTH", "MAX_URL_LENGTH")
	_ = v.BindEnv("logging.level", "LOGGING_LEVEL", "LOG_LEVEL")
}

func (c *Config) Validate() error {
	if c.App.ShortCodeLength <= 0 {
		return fmt.Errorf("app.short_code_length must be positive, got %d", c.App.ShortCodeLength)
	}
	if c.App.ExpirationDays <= 0 {
		return fmt.Errorf("app.expiration_days must be positive, got %d", c.App.ExpirationDays)
	}
	if c.App.MaxURLLength <= 0 {
		return fmt.Errorf("app.max_url_length must be positive, got %d", c.App.MaxURLLength)
	}
	if c.App.MaxGenerationAttempts <= 0 {
		return fmt.Errorf("app.max_generation_attempts must be positive, got %d", c.App.MaxGenerationAttempts)
	}
	if c.Database.Pool.Size <= 0 {
		return fmt.Errorf("database.pool.size must be positive, got %d", c.Database.Pool.Size)
	}
	if c.Database.Pool.MaxOverflow < 0 {
		return fmt.Errorf("database.pool.max_overflow must not be negative, got %d", c.Database.Pool.MaxOverflow)
	}
	return nil
}

func (c *Config) GetDatabaseURL() string {
	switch c.Database.Type {
	case "sqlite":
		return c.Database.SQLite.Path
	case "postgres":
		return c.Database.Postgres.URL
	default:
		return ""
	}
}

// ExpirationWindow is the lifetime given to every new alias.
func (c *Config) ExpirationWindow() time.Duration {
	return time.Duration(c.App.ExpirationDays) * 24 * time.Hour
}

// PoolTimeout falls back to 30s when the configured value does not parse.
func (c *Config) PoolTimeout() time.Duration {
	return Duration(c.Database.Pool.Timeout, 30*time.Second)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Cache.Redis.Host, c.Cache.Redis.Port)
}

// Duration parses value, returning fallback when it is empty or invalid.
func Duration(value string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return fallback
}
