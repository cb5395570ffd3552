// Package middleware provides HTTP middleware for the preview service.
//
// It includes:
//   - Structured request logging through the logging package
//   - Prometheus request metrics labelled by mux route template
//   - Filtering for health checks and status polling
package middleware
