package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	for _, mode := range []string{"missing", "existing", "all"} {
		RunsTotal.WithLabelValues(mode, "completed")
		RunsTotal.WithLabelValues(mode, "cancelled")
		RunDuration.WithLabelValues(mode)
	}

	for _, stage := range []string{"fetch", "preview"} {
		RetryAttempts.WithLabelValues(stage)
		RetrySuccess.WithLabelValues(stage)
		RetryDuration.WithLabelValues(stage)
		for _, kind := range []string{"timeout", "network", "api_error", "preview_generation", "invalid_input", "unknown"} {
			RetryFailures.WithLabelValues(stage, kind)
		}
	}

	for _, status := range []string{"success", "error"} {
		PlaceholdersTotal.WithLabelValues(status)
	}
	for _, p := range []string{"missing", "existing", "placeholder_only"} {
		SelectionAssets.WithLabelValues(p)
	}
	for _, s := range []string{"2xx", "4xx", "5xx", "error"} {
		CatalogRequestsTotal.WithLabelValues(s)
	}

	for _, mt := range []string{"image", "video"} {
		PreviewGenerationsTotal.WithLabelValues(mt, "success")
		PreviewGenerationsTotal.WithLabelValues(mt, "error")
		for _, phase := range []string{"download", "decode", "resize", "encode", "save"} {
			PreviewPhaseDuration.WithLabelValues(mt, phase)
		}
	}
	for _, kind := range []string{"real", "placeholder"} {
		PreviewBytesWritten.WithLabelValues(kind)
	}
	for _, status := range []string{"all", "real", "placeholder"} {
		AssetsTotal.WithLabelValues(status)
	}
}
