// Package database provides SQLite persistence for the preview fetcher.
//
// It stores:
//   - one preview record per asset (real preview or placeholder, with path
//     and content digest)
//   - the history of finished batch runs as JSON reports
//   - small key/value metadata such as the last run timestamp
//
// The database uses WAL mode for concurrent reads and creates its schema on
// open.
package database
