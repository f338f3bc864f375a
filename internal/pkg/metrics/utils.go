package metrics

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const maxLabelLength = 100

// staticRoutes are recorded as is; everything else is collapsed to keep the
// path label's cardinality bounded.
var staticRoutes = map[string]struct{}{
	"/":        {},
	"/health":  {},
	"/ready":   {},
	"/metrics": {},
	"/shorten": {},
	"/redoc":   {},
}

var prefixRoutes = []struct {
	prefix, label string
}{
	{"/url/", "/url/*"},
	{"/swagger", "/swagger/*"},
}

var labelReplacer = strings.NewReplacer(`"`, "", `\`, "", "\n", "", "\r", "")

// GetRoutePath prefers the chi route pattern and falls back to NormalizePath
// for requests that matched no route.
func GetRoutePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return NormalizePath(r.URL.Path)
}

// NormalizePath maps a raw request path to a low-cardinality label. A single
// unknown segment is taken to be a short code.
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if _, ok := staticRoutes[path]; ok {
		return path
	}
	for _, route := range prefixRoutes {
		if strings.HasPrefix(path, route.prefix) {
			return route.label
		}
	}
	if trimmed := strings.Trim(path, "/"); trimmed != "" && !strings.Contains(trimmed, "/") {
		return "/{shortCode}"
	}
	return path
}

// SanitizeLabel strips quoting and line breaks and caps the label length.
func SanitizeLabel(value string) string {
	value = labelReplacer.Replace(value)
	if len(value) > maxLabelLength {
		value = value[:maxLabelLength]
	}
	return value
}
