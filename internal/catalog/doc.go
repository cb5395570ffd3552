// Package catalog is the HTTP client for the remote model catalog that
// supplies asset metadata.
//
// The client:
//
//   - authenticates with a bearer token (golang.org/x/oauth2) when one is configured
//   - paces requests with a token-bucket limiter (golang.org/x/time/rate)
//   - collapses concurrent fetches of the same name (golang.org/x/sync/singleflight)
//
// Errors are marked for the batch pipeline: transport failures with
// failure.ErrNetwork and non-2xx or undecodable responses with failure.ErrAPI
// (the concrete type is *APIError).
//
// The same client downloads media URLs for the media processor via Download.
package catalog
