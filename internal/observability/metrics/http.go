// Package metrics provides HTTP handler metrics for observability
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics contains Prometheus metrics for the web UI and the JSON API
type HTTPMetrics struct {
	registry *prometheus.Registry

	// request metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestErrors   *prometheus.CounterVec
	httpResponseSize    *prometheus.HistogramVec

	// entity operations through forms and the API
	entityOperationsTotal *prometheus.CounterVec

	// authentication metrics
	authOperationsTotal *prometheus.CounterVec
	authErrors          *prometheus.CounterVec

	// template rendering metrics
	templateRenderDuration *prometheus.HistogramVec
	templateRenderErrors   *prometheus.CounterVec

	// select-list lookup cache
	lookupCacheTotal *prometheus.CounterVec
}

// NewHTTPMetrics creates and registers new HTTP handler metrics
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *HTTPMetrics) initMetrics() {
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"}, // path is the route pattern, e.g. /channels/:id/edit
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Time taken for HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.httpRequestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "Total number of HTTP request errors",
		},
		[]string{"method", "path", "error_type"}, // error_type: an error category such as validation or not-found
	)

	m.httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes",
			Buckets: prometheus.ExponentialBuckets(BucketStart100B, BucketFactor10, BucketCount6),
		},
		[]string{"method", "path"},
	)

	m.entityOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_entity_operations_total",
			Help: "Total number of create, update and delete operations per entity",
		},
		[]string{"entity", "operation", "status"},
	)

	m.authOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_auth_operations_total",
			Help: "Total number of authentication operations",
		},
		[]string{"operation", "status"}, // operation: login, logout
	)

	m.authErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"error_type"}, // error_type: invalid_credentials, rate_limited, forbidden
	)

	m.templateRenderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_template_render_duration_seconds",
			Help:    "Time taken for template rendering",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount12),
		},
		[]string{"template"},
	)

	m.templateRenderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_template_render_errors_total",
			Help: "Total number of template rendering errors",
		},
		[]string{"template"},
	)

	m.lookupCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_lookup_cache_total",
			Help: "Select-list lookup cache hits and misses",
		},
		[]string{"lookup", "result"}, // result: hit, miss
	)
}

func (m *HTTPMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestErrors,
		m.httpResponseSize,
		m.entityOperationsTotal,
		m.authOperationsTotal,
		m.authErrors,
		m.templateRenderDuration,
		m.templateRenderErrors,
		m.lookupCacheTotal,
	}
}

// Describe implements the Collector interface
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordHTTPRequest records an HTTP request
func (m *HTTPMetrics) RecordHTTPRequest(method, path string, statusCode int, duration float64) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordHTTPRequestError records an HTTP request error
func (m *HTTPMetrics) RecordHTTPRequestError(method, path, errorType string) {
	m.httpRequestErrors.WithLabelValues(method, path, errorType).Inc()
}

// RecordHTTPResponseSize records the size of an HTTP response
func (m *HTTPMetrics) RecordHTTPResponseSize(method, path string, sizeBytes int64) {
	m.httpResponseSize.WithLabelValues(method, path).Observe(float64(sizeBytes))
}

// RecordEntityOperation counts a create, update or delete of entity
func (m *HTTPMetrics) RecordEntityOperation(entity, operation string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.entityOperationsTotal.WithLabelValues(entity, operation, status).Inc()
}

// RecordAuthOperation records an authentication operation
func (m *HTTPMetrics) RecordAuthOperation(operation, status string) {
	m.authOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordAuthError records an authentication error
func (m *HTTPMetrics) RecordAuthError(errorType string) {
	m.authErrors.WithLabelValues(errorType).Inc()
}

// RecordTemplateRender records template rendering duration
func (m *HTTPMetrics) RecordTemplateRender(template string, duration float64) {
	m.templateRenderDuration.WithLabelValues(template).Observe(duration)
}

// RecordTemplateRenderError records a template rendering error
func (m *HTTPMetrics) RecordTemplateRenderError(template string) {
	m.templateRenderErrors.WithLabelValues(template).Inc()
}

// RecordLookupCache records a hit or miss of a select-list lookup
func (m *HTTPMetrics) RecordLookupCache(lookup string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookupCacheTotal.WithLabelValues(lookup, result).Inc()
}
