// Package metrics provides Prometheus instrumentation for preview-fetcher.
//
// All metrics are prefixed with "preview_fetcher_" and registered with the
// default registry through promauto, so they are served by promhttp.Handler
// on /metrics.
//
// # Metric Categories
//
// ## Runs
//
//   - RunsTotal: counter of runs by mode and outcome (completed/cancelled)
//   - RunDuration: histogram of run duration by mode
//   - RunInProgress, RunLastTimestamp: gauges
//   - ItemsTotal: counter of item outcomes by state and error kind
//   - PlaceholdersTotal: counter of placeholder writes by status
//   - SelectionAssets: gauge of the availability partitions at the last selection
//
// ## Retries
//
// Fed by retry.Observer (see NewRetryObserver), labelled by stage ("fetch"
// or "preview"): RetryAttempts, RetrySuccess, RetryFailures (with kind),
// RetryDuration.
//
// ## Collaborators
//
//   - CatalogRequestsTotal, CatalogRequestDuration, CatalogRateLimitWait,
//     CatalogSharedFetches for the metadata catalog client
//   - PreviewGenerationsTotal, PreviewPhaseDuration, PreviewBytesWritten,
//     FFmpegDuration for the media processor and storage
//   - AssetsTotal, AssetScanDuration, AssetScanErrors for the asset walker
//
// ## HTTP and Database
//
// HTTPRequestsTotal, HTTPRequestDuration and HTTPRequestsInFlight are
// recorded by the middleware package; DBQueryTotal, DBQueryDuration,
// DBConnectionsOpen and DBSizeBytes by the database package.
//
// # Observers
//
// retry and batch cannot import this package without a cycle, so they expose
// an Observer interface instead. Register wires both at startup:
//
//	metrics.Register()
//	metrics.InitializeMetrics()
//
// # Collector
//
// Collector polls a StatsProvider on an interval and updates AssetsTotal.
package metrics
