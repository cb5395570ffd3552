// Command preview-fetcher serves the preview generation API.
//
// preview-fetcher walks a directory of model assets, looks each one up in a
// remote catalog and saves a small JPEG preview next to it. Assets the
// catalog has no usable media for get a generated placeholder instead, so
// they are not retried on every run.
//
// # Application Lifecycle
//
//  1. Configuration Loading: defaults, optional YAML file (PREVIEW_CONFIG),
//     then environment variables
//  2. Database Initialization: SQLite in WAL mode holding preview records
//     and run history
//  3. Component Initialization:
//     - Catalog client: rate limited, optional bearer token
//     - Preview processor: libvips when available, imaging otherwise, ffmpeg
//       for video frames
//     - Asset catalog: parallel directory walk of ASSET_DIR
//     - Batch runner: chunked, bounded-concurrency scheduler with retries
//  4. HTTP Server Setup: routes, logging and metrics middleware
//  5. Graceful Shutdown: SIGINT/SIGTERM stop the server, cancel an active
//     run and wait for its report to be saved
//
// # HTTP API
//
//   - POST /api/previews/run: start a background run (409 while one is active)
//   - POST /api/previews/cancel: cancel the active run
//   - GET /api/previews/status: progress, recent errors and the last report
//   - GET /api/previews/runs: persisted run history
//   - GET /api/assets: assets with their preview status
//   - GET /health, /healthz, /livez, /version, /metrics
//
// # Environment Variables
//
//   - ASSET_DIR: root directory of model assets (default: /models)
//   - CACHE_DIR: placeholder previews (default: /cache)
//   - DATABASE_DIR: SQLite database directory (default: /database)
//   - PORT: HTTP port (default: 8080)
//   - CATALOG_URL, CATALOG_TOKEN, CATALOG_RPS, CATALOG_BURST: catalog client
//   - BATCH_SIZE, MAX_CONCURRENCY, MAX_RETRIES, METADATA_TIMEOUT,
//     PREVIEW_TIMEOUT: run defaults, overridable per request
//   - METRICS_ENABLED, LOG_LEVEL, LOG_FORMAT
//
// The fetchpreviews command in cmd/fetchpreviews runs the same pipeline in
// the foreground.
package main
