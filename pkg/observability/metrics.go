package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors exposed on the registry's
// /metrics endpoint.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ManifestOperationsTotal *prometheus.CounterVec

	ComposeOperationsTotal *prometheus.CounterVec
	ComposeConflictsTotal  *prometheus.CounterVec
	ComposeDuration        *prometheus.HistogramVec

	WebhookDeliveriesTotal   *prometheus.CounterVec
	WebhookDeliveryDuration  prometheus.Histogram
	GatewayRoutesComputed    prometheus.Gauge
}

// NewMetrics builds and registers the registry's collectors against
// registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_http_requests_total",
				Help: "Total number of HTTP requests handled by the registry API.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "registry_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ManifestOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_manifest_operations_total",
				Help: "Manifest register/update/delete/get/list operations by outcome.",
			},
			[]string{"operation", "status"},
		),
		ComposeOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_compose_operations_total",
				Help: "Schema composition requests by schema type and outcome.",
			},
			[]string{"schema_type", "status"},
		),
		ComposeConflictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_compose_conflicts_total",
				Help: "Naming conflicts recorded while composing schemas, by schema type and conflict type.",
			},
			[]string{"schema_type", "conflict_type"},
		),
		ComposeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "registry_compose_duration_seconds",
				Help:    "Time spent merging sources into a composed document.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"schema_type"},
		),
		WebhookDeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_webhook_deliveries_total",
				Help: "Webhook delivery attempts by terminal status.",
			},
			[]string{"status"},
		),
		WebhookDeliveryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "registry_webhook_delivery_duration_seconds",
				Help:    "Webhook delivery attempt duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		GatewayRoutesComputed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "registry_gateway_routes_computed",
				Help: "Number of routes in the gateway client's current route table.",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ManifestOperationsTotal,
		m.ComposeOperationsTotal,
		m.ComposeConflictsTotal,
		m.ComposeDuration,
		m.WebhookDeliveriesTotal,
		m.WebhookDeliveryDuration,
		m.GatewayRoutesComputed,
	)

	return m
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments every request through it with request
// count and duration metrics, keyed by the route's templated path rather
// than the raw URL so that path-parameter cardinality stays bounded.
func HTTPMetricsMiddleware(metrics *Metrics, routeLabel func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if routeLabel != nil {
				path = routeLabel(r)
			}
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint mounts the Prometheus scrape handler for
// registry on mux at /metrics.
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
