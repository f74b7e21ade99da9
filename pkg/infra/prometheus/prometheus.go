package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Latency buckets in milliseconds
	latencyBuckets = []float64{
		1, 5, 10, 25,
		50, 100, 250,
		500, 1000, 2500,
		5000, 10000, 30000,
	}

	RequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustguard_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"route", "method", "status"},
	)

	RequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trustguard_latency_ms",
			Help:    "Request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"route"},
	)

	Connections = promauto.With(registerer).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trustguard_connections",
			Help: "Number of active connections",
		},
		[]string{"state"},
	)

	AdmissionDecisions = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustguard_admission_decisions_total",
			Help: "Admission decisions by reason",
		},
		[]string{"reason"},
	)

	RateStoreLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trustguard_rate_store_latency_ms",
			Help:    "Rate store operation latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"backend", "operation"},
	)

	RateStoreErrors = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustguard_rate_store_errors_total",
			Help: "Failed rate store operations",
		},
		[]string{"backend", "operation"},
	)
)

type MetricsConfig struct {
	EnableLatency     bool // Request latency histograms
	EnableConnections bool // Connection tracking (can impact performance)
	EnableStore       bool // Rate store latency
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		EnableLatency:     true,
		EnableConnections: false,
		EnableStore:       true,
	}
}

var (
	Config   = DefaultMetricsConfig()
	initOnce sync.Once
)

func Initialize(cfg MetricsConfig) {
	Config = cfg
	initOnce.Do(func() {
		registry.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		prometheus.DefaultRegisterer = registry
		prometheus.DefaultGatherer = registry
	})
}
