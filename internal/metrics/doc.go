// Package metrics provides Prometheus instrumentation for the variant server.
//
// This package defines and exposes various metrics that can be scraped by
// Prometheus to monitor the health, performance, and behavior of the server.
// All metrics are prefixed with "variant_server_" to avoid naming collisions
// with other applications.
//
// # Metric Categories
//
// ## HTTP Metrics
//
// Track HTTP request performance and error rates:
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Derivative Generation Metrics
//
// Monitor the generation pipeline and on-disk cache:
//   - GenerationsTotal: Counter by output format and status
//   - GenerationDuration: Histogram of generation time by format
//   - GenerationBytesWritten: Counter of derivative bytes published
//   - DerivativeCacheHits: Counter of requests served from existing files
//   - DerivativeCacheMisses: Counter of requests requiring generation
//   - DerivativesRemoved: Counter of files removed by cleanup
//
// ## Queue Metrics
//
// Track deferred generation through descriptor files:
//   - QueueDescriptorsWritten: Counter of descriptors created
//   - QueueFulfillmentsTotal: Counter of fulfillment attempts by outcome
//   - QueueFulfillDuration: Histogram of deferred generation time
//
// ## Database Metrics
//
// Monitor ledger query performance:
//   - DBQueryTotal: Counter of queries by operation and status
//   - DBQueryDuration: Histogram of query duration by operation
//   - DBConnectionsOpen: Gauge of open database connections
//
// ## Watcher Metrics
//
// Track the filesystem watcher and its cleanup sweeps:
//   - WatcherEventsTotal: Counter of events by type
//   - WatcherErrors: Counter of watcher errors
//   - WatchedDirectories: Gauge of directories under watch
//   - WatcherSweepsTotal: Counter of derivative sweeps after source deletion
//
// # Usage
//
// Metrics are automatically registered with the default Prometheus registry
// using promauto. To expose them, mount the promhttp.Handler() on your
// metrics endpoint:
//
//	import "github.com/prometheus/client_golang/prometheus/promhttp"
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// # Collector
//
// The package provides a [Collector] type that periodically gathers ledger
// totals from a [StatsProvider] and updates the corresponding gauges:
//
//	collector := metrics.NewCollector(statsProvider, 1*time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Example PromQL queries for common use cases:
//
// Derivative cache hit rate:
//
//	rate(variant_server_derivative_cache_hits_total[5m]) /
//	(rate(variant_server_derivative_cache_hits_total[5m]) + rate(variant_server_derivative_cache_misses_total[5m]))
//
// P95 generation time by format:
//
//	histogram_quantile(0.95, sum(rate(variant_server_generation_duration_seconds_bucket[5m])) by (le, format))
//
// Deferred work backlog burn rate:
//
//	rate(variant_server_queue_fulfillments_total{status="fulfilled"}[5m])
package metrics
