package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Generation outcomes per output format ---
	formats := []string{"jpg", "png", "gif", "webp", "avif", "bmp", "tiff"}

	for _, format := range formats {
		GenerationDuration.WithLabelValues(format)
		GenerationsTotal.WithLabelValues(format, "success")
		GenerationsTotal.WithLabelValues(format, "error")
		GenerationsTotal.WithLabelValues(format, "error_not_found")
		GenerationsTotal.WithLabelValues(format, "error_encode")
	}

	// --- Queue fulfillment outcomes ---
	for _, status := range []string{"fulfilled", "not_pending", "stale", "error"} {
		QueueFulfillmentsTotal.WithLabelValues(status)
	}

	// --- Ledger query operations ---
	for _, op := range []string{"initialize_schema", "record", "remove_source", "remove_path", "stats", "vacuum"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	// --- Watcher event types ---
	for _, event := range []string{"create", "write", "remove", "rename", "chmod"} {
		WatcherEventsTotal.WithLabelValues(event)
	}

	// --- Worker job outcomes ---
	for _, status := range []string{"success", "error", "skipped"} {
		WorkerJobsTotal.WithLabelValues(status)
	}
}
