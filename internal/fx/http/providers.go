package http

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/sp3dr4/relink/config"
	httpAdapter "github.com/sp3dr4/relink/internal/adapters/http"
	"github.com/sp3dr4/relink/internal/application"
	"github.com/sp3dr4/relink/internal/domain"
	"github.com/sp3dr4/relink/internal/server"
)

// ProvideHTTPServer builds the listener for the router. Unset timeouts fall
// back to conservative defaults.
func ProvideHTTPServer(cfg *config.Config, router chi.Router, logger *slog.Logger) server.Server {
	return server.NewHTTP(":"+cfg.Server.Port, router, server.Timeouts{
		ReadHeader: 10 * time.Second,
		Read:       config.Duration(cfg.Server.ReadTimeout, 15*time.Second),
		Write:      config.Duration(cfg.Server.WriteTimeout, 15*time.Second),
		Idle:       config.Duration(cfg.Server.IdleTimeout, 60*time.Second),
	}, logger.With("component", "http"))
}

// ProvideHandlers creates HTTP handlers with proper dependencies
func ProvideHandlers(service *application.URLService, repo domain.URLRepository) *httpAdapter.Handlers {
	return httpAdapter.NewHandlers(service, repo)
}

// RateLimiterParams holds the parameters needed to build the rate limiter
type RateLimiterParams struct {
	fx.In

	Config *config.Config
	Client *redis.Client `optional:"true"`
	Logger *slog.Logger
}

// ProvideRateLimiter returns nil when rate limiting is off or no redis client
// is configured. The router then skips the middleware.
func ProvideRateLimiter(params RateLimiterParams) *httpAdapter.RateLimiter {
	rl := params.Config.RateLimit
	if !rl.Enabled || params.Client == nil {
		return nil
	}
	params.Logger.Info("Rate limiting enabled", "max_requests", rl.MaxRequests, "window", rl.Window)
	return httpAdapter.NewRateLimiter(
		params.Client,
		rl.MaxRequests,
		config.Duration(rl.Window, time.Minute),
		params.Logger,
	)
}
