package retry

// Observer records retry metrics. Implementations are provided by the
// metrics package to break the import cycle between retry and metrics.
type Observer interface {
	// ObserveAttempt is called before every attempt after the first.
	ObserveAttempt(stage string)
	// ObserveSuccess is called when an operation succeeds after at least one retry.
	ObserveSuccess(stage string)
	// ObserveFailure is called when retries are exhausted.
	ObserveFailure(stage, kind string)
	// ObserveDuration records the total time spent across all attempts.
	ObserveDuration(stage string, durationSeconds float64)
}

// defaultObserver is the package-level observer set at startup.
// If nil, metric recording is silently skipped (safe for tests).
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
// Call this once at startup after creating the observer implementation.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
