package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// PrometheusMiddleware records request count, latency and in-flight requests.
// Requests to skipPath, normally the scrape endpoint, are not recorded.
func PrometheusMiddleware(registry Registry, skipPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPath != "" && r.URL.Path == skipPath {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			registry.IncHTTPRequestsInFlight()
			defer registry.DecHTTPRequestsInFlight()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			// The route pattern is only complete once chi has routed the request.
			registry.RecordHTTPRequest(
				r.Method,
				SanitizeLabel(GetRoutePath(r)),
				strconv.Itoa(status),
				time.Since(start).Seconds(),
			)
		})
	}
}
