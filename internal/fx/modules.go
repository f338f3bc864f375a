package fx

import (
	"go.uber.org/fx"

	"github.com/sp3dr4/relink/config"
	"github.com/sp3dr4/relink/internal/application"
)

// ConfigModule loads configuration from config.yaml, .env and the environment.
var ConfigModule = fx.Module("config",
	fx.Provide(config.Load),
)

// ObservabilityModule provides the process logger and the metrics registry.
var ObservabilityModule = fx.Module("observability",
	fx.Provide(
		ProvideLogger,
		ProvideMetricsRegistry,
	),
)

// StorageModule opens the durable store and the cache, and releases both on
// shutdown.
var StorageModule = fx.Module("storage",
	fx.Provide(
		ProvideRepository,
		ProvideRedisClient,
		ProvideCache,
	),
	fx.Invoke(
		RegisterRepositoryHooks,
		RegisterCacheHooks,
	),
)

// ApplicationModule provides the code generator and the URL service.
var ApplicationModule = fx.Module("application",
	fx.Provide(
		ProvideCodeGenerator,
		ProvideSettings,
		application.NewURLService,
	),
)

// CoreModules is everything except the transport.
var CoreModules = fx.Options(
	ConfigModule,
	ObservabilityModule,
	StorageModule,
	ApplicationModule,
)
