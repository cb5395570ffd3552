package batch

import "time"

// Observer records run metrics. The metrics package provides the
// implementation; batch does not import it directly.
type Observer interface {
	// ObserveActive is called with true once a run is admitted and with
	// false when Run returns, whatever the result.
	ObserveActive(active bool)
	ObserveRun(mode string, cancelled bool, duration time.Duration)
	ObserveItem(state string, kind string)
	ObservePlaceholder(ok bool)
	ObserveSelection(missing, existing, placeholderOnly int)
}

var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
// Call this once at startup.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
