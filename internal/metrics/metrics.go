package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the application metrics
type Metrics struct {
	// HTTP request metrics of the presentation API
	HTTPRequestTotal    *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Gateway call metrics
	GatewayRequestTotal    *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec
	GatewayBreakerState    *prometheus.GaugeVec

	// Local state metrics
	StoreMutationTotal *prometheus.CounterVec
	StoreItems         prometheus.Gauge
	PendingOps         prometheus.Gauge

	// Change feed metrics
	EventPublishTotal    *prometheus.CounterVec
	EventPublishDuration *prometheus.HistogramVec

	// Schema validation metrics
	SchemaValidationTotal *prometheus.CounterVec
}

// Global metrics instance with mutex for thread safety
var (
	globalMetrics *Metrics
	metricsMutex  sync.Mutex
)

// NewMetrics creates a new Metrics instance with all required metrics
func NewMetrics() *Metrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	// Return existing instance if already created
	if globalMetrics != nil {
		return globalMetrics
	}

	m := &Metrics{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "luxy_http_requests_total",
			Help: "Total number of presentation API requests",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "luxy_http_request_duration_seconds",
			Help:    "Presentation API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		GatewayRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "luxy_gateway_requests_total",
			Help: "Total number of content gateway calls",
		}, []string{"operation", "code"}),

		GatewayRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "luxy_gateway_request_duration_seconds",
			Help:    "Content gateway call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		GatewayBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "luxy_gateway_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),

		StoreMutationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "luxy_store_mutations_total",
			Help: "Total number of content store mutations",
		}, []string{"kind", "status"}),

		StoreItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "luxy_store_items",
			Help: "Number of content items held by the store",
		}),

		PendingOps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "luxy_pending_ops",
			Help: "Number of optimistic operations awaiting the gateway",
		}),

		EventPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "luxy_event_publish_total",
			Help: "Total number of change feed publish operations",
		}, []string{"event_type", "status"}),

		EventPublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "luxy_event_publish_duration_seconds",
			Help:    "Change feed publish duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"event_type", "status"}),

		SchemaValidationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "luxy_schema_validation_total",
			Help: "Total number of gateway response validations",
		}, []string{"schema", "status"}),
	}

	// Register metrics with the default registry
	registerMetrics(m)

	// Store as global instance
	globalMetrics = m

	return m
}

// registerMetrics registers all metrics with the default registry
func registerMetrics(m *Metrics) {
	registerOrGet(m.HTTPRequestTotal)
	registerOrGet(m.HTTPRequestDuration)
	registerOrGet(m.GatewayRequestTotal)
	registerOrGet(m.GatewayRequestDuration)
	registerOrGet(m.GatewayBreakerState)
	registerOrGet(m.StoreMutationTotal)
	registerOrGet(m.StoreItems)
	registerOrGet(m.PendingOps)
	registerOrGet(m.EventPublishTotal)
	registerOrGet(m.EventPublishDuration)
	registerOrGet(m.SchemaValidationTotal)
}

// registerOrGet tries to register a metric, returns the existing one if already registered
func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}

// Status returns the label used for an operation outcome.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
