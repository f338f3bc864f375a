package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sp3dr4/relink/config"
)

// PrometheusRegistry implements Registry on a private prometheus.Registry, so
// several instances (one per test, say) never collide.
type PrometheusRegistry struct {
	registry *prometheus.Registry
	config   config.MetricsConfig

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	urlsCreatedTotal     prometheus.Counter
	resolutionsTotal     *prometheus.CounterVec
	cacheOperationsTotal *prometheus.CounterVec
}

var _ Registry = (*PrometheusRegistry)(nil)

// NewPrometheusRegistry registers the service's collectors, plus the Go
// runtime and process collectors when CollectRuntime is set.
func NewPrometheusRegistry(cfg config.MetricsConfig) (Registry, error) {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		}
	}
	httpLabels := []string{LabelMethod, LabelPath, LabelStatusCode}

	p := &PrometheusRegistry{
		registry: registry,
		config:   cfg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts(opts("http_requests_total", "Total number of HTTP requests")),
			httpLabels,
		),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, httpLabels),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts(opts("http_requests_in_flight", "Number of HTTP requests currently being served")),
		),

		urlsCreatedTotal: factory.NewCounter(
			prometheus.CounterOpts(opts("urls_created_total", "Total number of short URLs created")),
		),
		resolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts(opts("resolutions_total", "Short code resolutions by terminal outcome")),
			[]string{LabelOutcome},
		),
		cacheOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts(opts("cache_operations_total", "Cache operations by operation and status")),
			[]string{LabelOperation, LabelStatus},
		),
	}

	if cfg.CollectRuntime {
		if err := registry.Register(collectors.NewGoCollector()); err != nil {
			return nil, err
		}
		if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *PrometheusRegistry) RecordHTTPRequest(method, path, statusCode string, duration float64) {
	p.httpRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	p.httpRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration)
}

func (p *PrometheusRegistry) IncHTTPRequestsInFlight() { p.httpRequestsInFlight.Inc() }
func (p *PrometheusRegistry) DecHTTPRequestsInFlight() { p.httpRequestsInFlight.Dec() }
func (p *PrometheusRegistry) IncURLsCreated()          { p.urlsCreatedTotal.Inc() }

// RecordResolution counts one resolve call by its terminal outcome.
func (p *PrometheusRegistry) RecordResolution(outcome string) {
	p.resolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheOperation counts one cache get or set by its status.
func (p *PrometheusRegistry) RecordCacheOperation(operation, status string) {
	p.cacheOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RegisterDBStats exports db's pool statistics when database metrics are on.
func (p *PrometheusRegistry) RegisterDBStats(db *sql.DB, dbName string) error {
	if !p.config.CollectDatabase {
		return nil
	}
	return p.registry.Register(collectors.NewDBStatsCollector(db, dbName))
}

func (p *PrometheusRegistry) GetRegistry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRegistry) GetHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
