package metrics

import (
	"testing"
	"time"

	"preview-fetcher/internal/batch"
	"preview-fetcher/internal/retry"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
		{"DBQueryTotal", DBQueryTotal},
		{"DBQueryDuration", DBQueryDuration},
		{"DBConnectionsOpen", DBConnectionsOpen},
		{"DBSizeBytes", DBSizeBytes},
		{"RunsTotal", RunsTotal},
		{"RunDuration", RunDuration},
		{"ItemsTotal", ItemsTotal},
		{"PlaceholdersTotal", PlaceholdersTotal},
		{"SelectionAssets", SelectionAssets},
		{"RetryAttempts", RetryAttempts},
		{"RetryFailures", RetryFailures},
		{"CatalogRequestsTotal", CatalogRequestsTotal},
		{"PreviewGenerationsTotal", PreviewGenerationsTotal},
		{"FFmpegDuration", FFmpegDuration},
		{"AssetsTotal", AssetsTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetrics(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("InitializeMetrics panicked: %v", r)
		}
	}()
	InitializeMetrics()
	InitializeMetrics()
}

func TestRetryObserver(t *testing.T) {
	o := NewRetryObserver()

	before := testutil.ToFloat64(RetryAttempts.WithLabelValues("fetch"))
	o.ObserveAttempt("fetch")
	o.ObserveAttempt("fetch")
	if got := testutil.ToFloat64(RetryAttempts.WithLabelValues("fetch")) - before; got != 2 {
		t.Errorf("RetryAttempts delta = %v, want 2", got)
	}

	before = testutil.ToFloat64(RetryFailures.WithLabelValues("preview", "network"))
	o.ObserveFailure("preview", "network")
	if got := testutil.ToFloat64(RetryFailures.WithLabelValues("preview", "network")) - before; got != 1 {
		t.Errorf("RetryFailures delta = %v, want 1", got)
	}

	o.ObserveSuccess("fetch")
	o.ObserveDuration("fetch", 0.5)
}

func TestBatchObserver(t *testing.T) {
	o := NewBatchObserver()

	before := testutil.ToFloat64(RunsTotal.WithLabelValues("missing", "cancelled"))
	o.ObserveRun("missing", true, 2*time.Second)
	if got := testutil.ToFloat64(RunsTotal.WithLabelValues("missing", "cancelled")) - before; got != 1 {
		t.Errorf("RunsTotal delta = %v, want 1", got)
	}

	before = testutil.ToFloat64(ItemsTotal.WithLabelValues("succeeded", "none"))
	o.ObserveItem("succeeded", "")
	if got := testutil.ToFloat64(ItemsTotal.WithLabelValues("succeeded", "none")) - before; got != 1 {
		t.Errorf("ItemsTotal delta = %v, want 1", got)
	}

	before = testutil.ToFloat64(PlaceholdersTotal.WithLabelValues("error"))
	o.ObservePlaceholder(false)
	if got := testutil.ToFloat64(PlaceholdersTotal.WithLabelValues("error")) - before; got != 1 {
		t.Errorf("PlaceholdersTotal delta = %v, want 1", got)
	}

	o.ObserveActive(true)
	if got := testutil.ToFloat64(RunInProgress); got != 1 {
		t.Errorf("RunInProgress = %v while active, want 1", got)
	}
	o.ObserveActive(false)
	if got := testutil.ToFloat64(RunInProgress); got != 0 {
		t.Errorf("RunInProgress = %v after run, want 0", got)
	}

	o.ObserveSelection(4, 2, 1)
	if got := testutil.ToFloat64(SelectionAssets.WithLabelValues("missing")); got != 4 {
		t.Errorf("SelectionAssets missing = %v, want 4", got)
	}
	if got := testutil.ToFloat64(SelectionAssets.WithLabelValues("placeholder_only")); got != 1 {
		t.Errorf("SelectionAssets placeholder_only = %v, want 1", got)
	}
}

func TestRegister(t *testing.T) {
	Register()
	t.Cleanup(func() {
		retry.SetObserver(nil)
		batch.SetObserver(nil)
	})
}
