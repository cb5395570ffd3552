// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is resolved by viper from, in increasing precedence: built-in
// defaults, the YAML file named by PREVIEW_CONFIG, and environment variables.
// The YAML file uses the lowercase form of each variable (batch_size, ...).
//
//   - ASSET_DIR: Root of the model files; previews are written beside them (default: /models)
//   - CACHE_DIR: Placeholder images live in CACHE_DIR/placeholders (default: /cache)
//   - DATABASE_DIR: Directory for previews.db (default: /database)
//   - PORT: HTTP server port, also serving /metrics (default: 8080)
//   - METRICS_ENABLED: Expose Prometheus metrics (default: true)
//   - CATALOG_URL, CATALOG_TOKEN, CATALOG_RPS, CATALOG_BURST: Remote catalog client
//   - PREVIEW_MAX_SIZE, PREVIEW_QUALITY, FFMPEG_PATH: Preview rendering
//   - BATCH_SIZE, MAX_CONCURRENCY, METADATA_TIMEOUT, PREVIEW_TIMEOUT,
//     MAX_RETRIES, BASE_RETRY_DELAY, BACKOFF_MULTIPLIER, INTER_BATCH_DELAY,
//     STAGGER_DELAY, SKIP_VIDEO_PREVIEWS, PREVIEW_FILTER: Batch run defaults
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//
// Durations use Go syntax (30s, 1m). The batch run defaults are validated
// before anything else starts.
//
// # Directory Setup
//
//   - Asset directory: must exist or be creatable; a read-only mount is logged
//   - Database directory: required, must be writable
//   - Placeholder directory: required, must be writable
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogDatabaseInit]: Database initialization timing
//   - [LogMediaInit]: FFmpeg and libvips availability
//   - [LogCatalogInit]: Remote catalog client settings
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: Graceful shutdown
package startup
