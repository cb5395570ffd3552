// Package logging provides a leveled, printf-style logging interface for the
// preview fetcher, backed by zerolog.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable (DEBUG=1
// forces debug). LOG_FORMAT=console switches from JSON lines to a human
// readable console writer.
//
// Components that want their messages tagged can derive a Logger:
//
//	log := logging.With("scheduler")
//	log.Info("chunk %d/%d started", i, n)
package logging
