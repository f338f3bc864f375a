package http

import (
	"go.uber.org/fx"

	httpAdapter "github.com/sp3dr4/relink/internal/adapters/http"
)

// HTTPModule serves the URL service over HTTP: handlers, the optional rate
// limiter, the chi router and the listener with its lifecycle hooks.
var HTTPModule = fx.Module("http",
	fx.Provide(
		ProvideHandlers,
		ProvideRateLimiter,
		httpAdapter.NewRouter,
		ProvideHTTPServer,
	),
	fx.Invoke(RegisterHTTPServerHooks),
)
