// Package handlers provides the HTTP API of the preview fetcher.
//
// It includes handlers for:
//   - starting a background preview run and cancelling it
//   - run progress, recent errors and the last report
//   - run history and the asset list with preview status
//   - health, version and Prometheus metrics
//
// At most one run is active at a time; a second start request gets 409.
package handlers
