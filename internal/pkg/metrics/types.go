package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry defines the interface for metrics collection
type Registry interface {
	// HTTP Metrics
	RecordHTTPRequest(method, path, statusCode string, duration float64)
	IncHTTPRequestsInFlight()
	DecHTTPRequestsInFlight()

	// Business Metrics
	IncURLsCreated()
	RecordResolution(outcome string)
	RecordCacheOperation(operation, status string)

	// RegisterDBStats exports connection pool statistics for db
	RegisterDBStats(db *sql.DB, dbName string) error

	// Prometheus-specific methods
	GetRegistry() *prometheus.Registry
	GetHandler() http.Handler
}

// NoOpRegistry provides a no-op implementation for when metrics are disabled
type NoOpRegistry struct{}

func NewNoOpRegistry() Registry {
	return &NoOpRegistry{}
}

func (n *NoOpRegistry) RecordHTTPRequest(method, path, statusCode string, duration float64) {}
func (n *NoOpRegistry) IncHTTPRequestsInFlight()                                            {}
func (n *NoOpRegistry) DecHTTPRequestsInFlight()                                            {}
func (n *NoOpRegistry) IncURLsCreated()                                                     {}
func (n *NoOpRegistry) RecordResolution(outcome string)                                     {}
func (n *NoOpRegistry) RecordCacheOperation(operation, status string)                       {}
func (n *NoOpRegistry) RegisterDBStats(db *sql.DB, dbName string) error                     { return nil }
func (n *NoOpRegistry) GetRegistry() *prometheus.Registry                                   { return nil }
func (n *NoOpRegistry) GetHandler() http.Handler                                            { return nil }

// Common label names as constants
const (
	LabelMethod       = "method"
	LabelPath         = "path"
	LabelStatusCode   = "status_code"
	LabelOperation    = "operation"
	LabelStatus       = "status"
	LabelOutcome      = "outcome"
)

// Resolution outcomes
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeExpired  = "expired"
	OutcomeError    = "error"
)

// Cache operation statuses
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusOK      = "ok"
	CacheStatusError   = "error"
	CacheStatusSkipped = "skipped"
)
