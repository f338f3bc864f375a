package http

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/sp3dr4/relink/config"
	"github.com/sp3dr4/relink/internal/server"
)

// ServerParams holds what the HTTP server hooks need.
type ServerParams struct {
	fx.In

	Server server.Server
	Config *config.Config
	Logger *slog.Logger
}

// RegisterHTTPServerHooks binds the listener on start and drains it on stop.
func RegisterHTTPServerHooks(lc fx.Lifecycle, params ServerParams) {
	lc.Append(fx.StartStopHook(
		func(ctx context.Context) error {
			if err := params.Server.Start(ctx); err != nil {
				return err
			}
			params.Logger.Info("HTTP server listening",
				"addr", params.Server.Addr(),
				"database", params.Config.Database.Type,
				"cache", cacheBackend(params.Config),
				"base_url", params.Config.App.BaseURL,
			)
			return nil
		},
		func(ctx context.Context) error {
			params.Logger.Info("Draining HTTP server")
			if err := params.Server.Stop(ctx); err != nil {
				params.Logger.Error("HTTP server did not drain cleanly", "error", err)
				return err
			}
			return nil
		},
	))
}

func cacheBackend(cfg *config.Config) string {
	if !cfg.Cache.Enabled {
		return "disabled"
	}
	return cfg.Cache.Type
}
