package metrics

import (
	"time"

	"preview-fetcher/internal/batch"
	"preview-fetcher/internal/retry"
)

// retryObserver implements retry.Observer using the Prometheus
// metrics declared in this package.
type retryObserver struct{}

// NewRetryObserver creates an observer that records retry metrics.
func NewRetryObserver() retry.Observer {
	return &retryObserver{}
}

func (o *retryObserver) ObserveAttempt(stage string) {
	RetryAttempts.WithLabelValues(stage).Inc()
}

func (o *retryObserver) ObserveSuccess(stage string) {
	RetrySuccess.WithLabelValues(stage).Inc()
}

func (o *retryObserver) ObserveFailure(stage, kind string) {
	RetryFailures.WithLabelValues(stage, kind).Inc()
}

func (o *retryObserver) ObserveDuration(stage string, durationSeconds float64) {
	RetryDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// batchObserver implements batch.Observer.
type batchObserver struct{}

// NewBatchObserver creates an observer that records run, item and
// placeholder metrics.
func NewBatchObserver() batch.Observer {
	return &batchObserver{}
}

func (o *batchObserver) ObserveActive(active bool) {
	if active {
		RunInProgress.Set(1)
		return
	}
	RunInProgress.Set(0)
}

func (o *batchObserver) ObserveRun(mode string, cancelled bool, duration time.Duration) {
	outcome := "completed"
	if cancelled {
		outcome = "cancelled"
	}
	RunsTotal.WithLabelValues(mode, outcome).Inc()
	RunDuration.WithLabelValues(mode).Observe(duration.Seconds())
	RunLastTimestamp.SetToCurrentTime()
}

func (o *batchObserver) ObserveItem(state, kind string) {
	if kind == "" {
		kind = "none"
	}
	ItemsTotal.WithLabelValues(state, kind).Inc()
}

func (o *batchObserver) ObservePlaceholder(ok bool) {
	if ok {
		PlaceholdersTotal.WithLabelValues("success").Inc()
		return
	}
	PlaceholdersTotal.WithLabelValues("error").Inc()
}

func (o *batchObserver) ObserveSelection(missing, existing, placeholderOnly int) {
	SelectionAssets.WithLabelValues("missing").Set(float64(missing))
	SelectionAssets.WithLabelValues("existing").Set(float64(existing))
	SelectionAssets.WithLabelValues("placeholder_only").Set(float64(placeholderOnly))
}

// Register installs the package observers into retry and batch.
// Call this once at startup.
func Register() {
	retry.SetObserver(NewRetryObserver())
	batch.SetObserver(NewBatchObserver())
}
