package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preview_fetcher_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "preview_fetcher_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "preview_fetcher_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preview_fetcher_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "preview_fetcher_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "preview_fetcher_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "preview_fetcher_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Run metrics
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preview_fetcher_runs_total",
			Help: "Total number of preview runs by mode and outcome",
		},
		[]string{"mode", "outcome"}, // outcome: "completed", "cancelled"
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "preview_fetcher_run_duration_seconds",
			Help:    "Duration of preview runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"mode"},
	)

	RunLastTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "preview_fetcher_run_last_timestamp",
			Help: "Unix time the last preview run finished",
		},
	)

	RunInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "preview_fetcher_run_in_progress",
			Help: "Whether a preview run is active (1 = running, 0 = idle)",
		},
	)

	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preview_fetcher_items_total",
			Help: "Total number of processed items by final state and error kind",
		},
		[]string{"state", "error_kind"},
	)

	PlaceholdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preview_fetcher_placeholders_total",
			Help: "Total number of placeholder writes by status",
		},
		[]string{"status"},
	)

	SelectionAssets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "preview_fetcher_selection_assets",
			Help: "Assets per availability partition at the last selection",
		},
		[]string{"partition"}, // "missing", "existing", "placeholder_only"
	)
)

// Retry metrics
var (
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preview_fetcher_retry_attempts_total",
			Help: "Total number of retry attempts by stage",
		},
		[]string{"stage"},
	)

	RetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preview_fetcher_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"stage"},
	)

	RetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preview_fetcher_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"stage", "kind"},
	)

	RetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "preview_fetcher_retry_duration_seconds",
			Help:    "Total time spent across all attempts of a stage",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)
)

// Catalog metrics
var (
	CatalogRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preview_fetcher_catalog_requests_total",
			Help: "Requests to the metadata catalog by status class",
		},
		[]string{"status"}, // "2xx", "4xx", "5xx", "error"
	)

	CatalogRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "preview_fetcher_catalog_request_duration_seconds",
			Help:    "Metadata catalog request latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	CatalogRateLimitWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "preview_fetcher_catalog_rate_limit_wait_seconds",
			Help:    "Time spent waiting for the catalog rate limiter",
			Buckets: []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	CatalogSharedFetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "preview_fetcher_catalog_shared_fetches_total",
			Help: "Metadata fetches answered by an identical in-flight request",
		},
	)
)

// Preview generation metrics
var (
	PreviewGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preview_fetcher_preview_generations_total",
			Help: "Preview generation attempts by media type and status",
		},
		[]string{"media_type", "status"},
	)

	PreviewPhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "preview_fetcher_preview_phase_duration_seconds",
			Help:    "Duration of preview generation phases",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"media_type", "phase"}, // phase: "download", "decode", "resize", "encode", "save"
	)

	PreviewBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preview_fetcher_preview_bytes_written_total",
			Help: "Bytes written to preview and placeholder files",
		},
		[]string{"kind"}, // "real", "placeholder"
	)

	FFmpegDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "preview_fetcher_ffmpeg_duration_seconds",
			Help:    "Time spent extracting video frames with ffmpeg",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Asset catalog metrics
var (
	AssetsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "preview_fetcher_assets",
			Help: "Assets by preview status",
		},
		[]string{"status"}, // "all", "real", "placeholder"
	)

	AssetScanDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "preview_fetcher_asset_scan_last_duration_seconds",
			Help: "Duration of the last asset directory scan",
		},
	)

	AssetScanErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "preview_fetcher_asset_scan_errors_total",
			Help: "Errors encountered while scanning the asset directory",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "preview_fetcher_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "preview_fetcher_memory_decode_paused",
			Help: "1 while image decoding is held back by memory pressure",
		},
	)
)
