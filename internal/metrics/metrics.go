package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "variant_server_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "variant_server_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "variant_server_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Derivative generation metrics
var (
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "variant_server_generations_total",
			Help: "Total number of derivative generations",
		},
		[]string{"format", "status"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "variant_server_generation_duration_seconds",
			Help:    "Derivative generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"format"},
	)

	GenerationBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "variant_server_generation_bytes_written_total",
			Help: "Total bytes of derivative output written to the cache",
		},
	)

	DerivativeCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "variant_server_derivative_cache_hits_total",
			Help: "Total number of requests satisfied by an existing derivative",
		},
	)

	DerivativeCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "variant_server_derivative_cache_misses_total",
			Help: "Total number of requests that required generation or deferral",
		},
	)

	DerivativesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "variant_server_derivatives_removed_total",
			Help: "Total number of derivative files removed by cleanup",
		},
	)
)

// Ledger-backed library gauges, refreshed by the Collector
var (
	VariationsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "variant_server_variations_tracked",
			Help: "Number of generated variations recorded in the ledger",
		},
	)

	SourcesTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "variant_server_sources_tracked",
			Help: "Number of distinct source images with recorded variations",
		},
	)

	VariationBytesTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "variant_server_variation_bytes_tracked",
			Help: "Total bytes of recorded variations",
		},
	)
)

// Queue metrics
var (
	QueueDescriptorsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "variant_server_queue_descriptors_written_total",
			Help: "Total number of queue descriptors created for deferred generation",
		},
	)

	QueueFulfillmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "variant_server_queue_fulfillments_total",
			Help: "Total number of queue fulfillment attempts by outcome",
		},
		[]string{"status"},
	)

	QueueFulfillDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "variant_server_queue_fulfill_duration_seconds",
			Help:    "Deferred generation duration in seconds, descriptor read to publish",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "variant_server_db_queries_total",
			Help: "Total number of ledger database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "variant_server_db_query_duration_seconds",
			Help:    "Ledger database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "variant_server_db_connections_open",
			Help: "Number of open ledger database connections",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "variant_server_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "variant_server_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "variant_server_watcher_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)

	WatcherSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "variant_server_watcher_sweeps_total",
			Help: "Total number of derivative sweeps triggered by source deletion",
		},
	)
)

// Worker pool metrics
var (
	WorkerJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "variant_server_worker_jobs_total",
			Help: "Total number of worker pool jobs by status",
		},
		[]string{"status"},
	)

	WorkersBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "variant_server_workers_busy",
			Help: "Number of worker goroutines currently running a job",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "variant_server_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
