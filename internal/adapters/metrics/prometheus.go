// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jobrunner/layerscope/internal/ports/output"
)

// Collector implements the MetricsCollector port using Prometheus.
type Collector struct {
	gatherer            prometheus.Gatherer
	catalogScans        *prometheus.CounterVec
	layersDiscovered    prometheus.Gauge
	layerLoads          *prometheus.CounterVec
	loadDuration        *prometheus.HistogramVec
	cacheLookups        *prometheus.CounterVec
	normalizations      *prometheus.CounterVec
	storageOperations   *prometheus.CounterVec
	storageDuration     *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Ensure interface compliance.
var _ output.MetricsCollector = (*Collector)(nil)

// NewCollector creates a new Prometheus metrics collector registered with
// reg. A nil reg uses a fresh registry that also exports Go runtime and
// process metrics.
func NewCollector(namespace string, reg *prometheus.Registry) *Collector {
	if namespace == "" {
		namespace = "layerscope"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Collector{
		gatherer: reg,

		catalogScans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_scans_total",
				Help:      "Total number of layer root scans",
			},
			[]string{"status"},
		),

		layersDiscovered: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "layers_discovered",
				Help:      "Number of layers found by the last scan",
			},
		),

		layerLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layer_loads_total",
				Help:      "Total number of layer loads",
			},
			[]string{"layer_id", "status"},
		),

		loadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layer_load_duration_seconds",
				Help:      "Layer load duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"layer_id"},
		),

		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Total number of memo cache lookups",
			},
			[]string{"cache", "result"},
		),

		normalizations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "normalizations_total",
				Help:      "Total number of CRS normalizations by outcome",
			},
			[]string{"outcome"},
		),

		storageOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),

		storageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// IncCatalogScans increments the catalog scan counter.
func (c *Collector) IncCatalogScans(success bool) {
	c.catalogScans.WithLabelValues(statusLabel(success)).Inc()
}

// SetLayersDiscovered sets the number of discovered layers.
func (c *Collector) SetLayersDiscovered(count int) {
	c.layersDiscovered.Set(float64(count))
}

// IncLayerLoads increments the layer load counter.
func (c *Collector) IncLayerLoads(layerID string, success bool) {
	c.layerLoads.WithLabelValues(layerID, statusLabel(success)).Inc()
}

// ObserveLoadDuration records layer load duration.
func (c *Collector) ObserveLoadDuration(layerID string, duration time.Duration) {
	c.loadDuration.WithLabelValues(layerID).Observe(duration.Seconds())
}

// IncCacheLookups counts memo cache hits and misses.
func (c *Collector) IncCacheLookups(cache string, hit bool) {
	result := "hit"
	if !hit {
		result = "miss"
	}
	c.cacheLookups.WithLabelValues(cache, result).Inc()
}

// IncNormalizations counts CRS normalization outcomes.
func (c *Collector) IncNormalizations(outcome string) {
	c.normalizations.WithLabelValues(outcome).Inc()
}

// IncStorageOperations increments storage operation counter.
func (c *Collector) IncStorageOperations(operation string, success bool) {
	c.storageOperations.WithLabelValues(operation, statusLabel(success)).Inc()
}

// ObserveStorageDuration records storage operation duration.
func (c *Collector) ObserveStorageDuration(operation string, duration time.Duration) {
	c.storageDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler returns the HTTP handler exposing this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Middleware returns HTTP middleware for metrics collection.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := routeTemplate(r)
		c.httpRequestsTotal.WithLabelValues(r.Method, path, statusToString(wrapped.statusCode)).Inc()
		c.httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// routeTemplate returns the matched mux route template, e.g.
// "/api/v1/layers/{layerId}", so layer IDs do not become label values.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// statusToString converts HTTP status code to string category.
func statusToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
