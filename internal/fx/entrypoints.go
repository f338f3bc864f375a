package fx

import (
	"log/slog"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	httpFX "github.com/sp3dr4/relink/internal/fx/http"
)

// HTTPServerModules is the full application behind the HTTP transport. fx's own
// events go through the application logger.
var HTTPServerModules = fx.Options(
	CoreModules,
	httpFX.HTTPModule,
	fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
		return &fxevent.SlogLogger{Logger: logger.With("component", "fx")}
	}),
)
