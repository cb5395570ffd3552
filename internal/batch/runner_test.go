package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"preview-fetcher/internal/failure"

	"github.com/cockroachdb/errors"
)

type memoryStore struct {
	mu      sync.Mutex
	reports []RunReport
}

func (s *memoryStore) SaveRun(_ context.Context, r RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

// activeObserver records ObserveActive transitions.
type activeObserver struct {
	mu          sync.Mutex
	transitions []bool
}

func (o *activeObserver) ObserveActive(active bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, active)
}

func (o *activeObserver) last() (bool, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.transitions) == 0 {
		return false, 0
	}
	return o.transitions[len(o.transitions)-1], len(o.transitions)
}

func (o *activeObserver) ObserveRun(string, bool, time.Duration) {}
func (o *activeObserver) ObserveItem(string, string)            {}
func (o *activeObserver) ObservePlaceholder(bool)               {}
func (o *activeObserver) ObserveSelection(int, int, int)        {}

type failingAssets struct{}

func (failingAssets) Assets(context.Context) ([]Asset, error) {
	return nil, errors.New("asset root unreadable")
}

func TestRunMarksItselfActive(t *testing.T) {
	obs := &activeObserver{}
	SetObserver(obs)
	t.Cleanup(func() { SetObserver(nil) })

	f := newFakeCatalog("a")
	var duringRun bool
	f.fetchHook = func(string) { duringRun, _ = obs.last() }
	if _, err := NewRunner(f.deps()).Run(context.Background(), nil, ModeMissing, testConfig(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !duringRun {
		t.Error("run not reported active while fetching")
	}
	if active, n := obs.last(); active || n != 2 {
		t.Errorf("after run: active=%v transitions=%d, want false after 2", active, n)
	}

	// a failure to resolve assets still clears the flag
	deps := f.deps()
	deps.Assets = failingAssets{}
	if _, err := NewRunner(deps).Run(context.Background(), nil, ModeAll, testConfig(), nil); err == nil {
		t.Fatal("expected an asset resolution error")
	}
	if active, n := obs.last(); active || n != 4 {
		t.Errorf("after failed run: active=%v transitions=%d, want false after 4", active, n)
	}
}

func TestRunSevenAssets(t *testing.T) {
	f := newFakeCatalog(names(7)...)
	f.fetchDelay = 10 * time.Millisecond
	store := &memoryStore{}
	deps := f.deps()
	deps.Store = store
	runner := NewRunner(deps)
	rep := &recordingReporter{}

	report, err := runner.Run(context.Background(), nil, ModeMissing, testConfig(), rep)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Chunks [5, 2]; chunk 1 runs sub-groups [3, 2].
	want := []float64{percent(3, 7), percent(5, 7), percent(7, 7)}
	if len(rep.progress) != len(want) {
		t.Fatalf("progress = %v, want %v", rep.progress, want)
	}
	for i := range want {
		if rep.progress[i] != want[i] {
			t.Errorf("progress[%d] = %v, want %v", i, rep.progress[i], want[i])
		}
	}
	if f.maxInFlight > 3 {
		t.Errorf("max concurrent fetches = %d, want <= 3", f.maxInFlight)
	}

	if report.Selected != 7 || report.Completed != 7 || report.PreviewsGenerated != 7 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Outcomes) != 7 {
		t.Fatalf("got %d outcomes, want one per item", len(report.Outcomes))
	}
	seen := map[int]bool{}
	for _, o := range report.Outcomes {
		if seen[o.Index] {
			t.Errorf("duplicate outcome for index %d", o.Index)
		}
		seen[o.Index] = true
	}
	if report.Cancelled {
		t.Error("report should not be cancelled")
	}
	if report.RunID == "" || report.FinishedAt.Before(report.StartedAt) {
		t.Errorf("run id %q, started %v finished %v", report.RunID, report.StartedAt, report.FinishedAt)
	}
	if len(rep.completed) != 1 || len(rep.errors) != 0 {
		t.Errorf("OnComplete called %d times, OnError %d times", len(rep.completed), len(rep.errors))
	}
	if len(store.reports) != 1 || store.reports[0].RunID != report.RunID {
		t.Errorf("store has %d reports", len(store.reports))
	}
	if runner.Running() {
		t.Error("runner should be idle after Run returns")
	}
}

func TestRunPlaceholderCreatedOnce(t *testing.T) {
	f := newFakeCatalog("empty", "normal")
	f.meta["empty"].Media = nil

	report, err := NewRunner(f.deps()).Run(context.Background(), nil, ModeMissing, testConfig(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if f.placeholderCalls["empty"] != 1 {
		t.Errorf("placeholder calls = %d, want 1", f.placeholderCalls["empty"])
	}
	if f.placeholderCalls["normal"] != 0 {
		t.Errorf("normal asset should not get a placeholder")
	}
	if report.PlaceholdersCreated != 1 || report.NoImagesAvailable != 1 || report.PreviewsGenerated != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestRunDeduplicatesNames(t *testing.T) {
	f := newFakeCatalog("empty")
	f.meta["empty"].Media = nil

	report, err := NewRunner(f.deps()).Run(context.Background(), []string{"empty", "empty"}, ModeAll, testConfig(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Selected != 1 || f.placeholderCalls["empty"] != 1 || f.fetchCalls["empty"] != 1 {
		t.Errorf("selected=%d placeholders=%d fetches=%d", report.Selected, f.placeholderCalls["empty"], f.fetchCalls["empty"])
	}
}

func TestRunMissingTwiceIsIdempotent(t *testing.T) {
	f := newFakeCatalog("a", "b", "c")
	f.meta["c"].Media = nil
	runner := NewRunner(f.deps())

	if _, err := runner.Run(context.Background(), nil, ModeMissing, testConfig(), nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before := f.totalFetches()

	second, err := runner.Run(context.Background(), nil, ModeMissing, testConfig(), nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := f.totalFetches() - before; got != 0 {
		t.Errorf("second run fetched %d times, want 0", got)
	}
	if second.Selected != 0 || second.SkippedAlreadyDone != 3 {
		t.Errorf("second report selected=%d alreadyDone=%d", second.Selected, second.SkippedAlreadyDone)
	}
	if second.Existing != 2 || second.PlaceholderOnly != 1 {
		t.Errorf("partitions existing=%d placeholder=%d", second.Existing, second.PlaceholderOnly)
	}
}

func TestRunCancelBetweenChunks(t *testing.T) {
	f := newFakeCatalog(names(7)...)
	runner := NewRunner(f.deps())
	cfg := testConfig()
	cfg.InterBatchDelay = 200 * time.Millisecond

	rep := &recordingReporter{}
	rep.onProgress = func(p float64) {
		if p >= percent(5, 7) {
			runner.Cancel()
		}
	}

	report, err := runner.Run(context.Background(), nil, ModeMissing, cfg, rep)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !report.Cancelled {
		t.Error("report should be cancelled")
	}
	if report.Completed != 5 {
		t.Errorf("Completed = %d, want 5", report.Completed)
	}
	for _, n := range []string{"asset-05", "asset-06"} {
		if f.fetchCalls[n] != 0 {
			t.Errorf("%s fetched after cancellation", n)
		}
	}
	if len(rep.completed) != 1 {
		t.Errorf("OnComplete called %d times, want 1", len(rep.completed))
	}

	// Cancel after completion is a no-op.
	runner.Cancel()
	runner.Cancel()
}

func TestRunPlaceholderWrittenAfterCancel(t *testing.T) {
	f := newFakeCatalog("asset-00", "asset-01", "asset-02")
	f.meta["asset-00"].Media = nil
	runner := NewRunner(f.deps())
	f.fetchHook = func(name string) {
		if name == "asset-01" {
			time.Sleep(50 * time.Millisecond)
			runner.Cancel()
		}
	}
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.MaxConcurrency = 2

	report, err := runner.Run(context.Background(), nil, ModeMissing, cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !report.Cancelled {
		t.Error("report should be cancelled")
	}
	if f.placeholderCalls["asset-00"] != 1 {
		t.Errorf("placeholder for settled item should still be written, got %d calls", f.placeholderCalls["asset-00"])
	}
	if f.fetchCalls["asset-02"] != 0 {
		t.Error("second chunk should not start")
	}
}

func TestRunStaggersPipelineStarts(t *testing.T) {
	f := newFakeCatalog(names(6)...)
	var mu sync.Mutex
	started := map[string]time.Time{}
	f.fetchHook = func(name string) {
		mu.Lock()
		started[name] = time.Now()
		mu.Unlock()
	}
	cfg := testConfig()
	cfg.BatchSize = 6
	cfg.MaxConcurrency = 3
	cfg.StaggerDelay = 40 * time.Millisecond

	if _, err := NewRunner(f.deps()).Run(context.Background(), nil, ModeMissing, cfg, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	groups := [][]string{
		{"asset-00", "asset-01", "asset-02"},
		{"asset-03", "asset-04", "asset-05"},
	}
	for _, group := range groups {
		base := started[group[0]]
		for i, name := range group {
			offset := started[name].Sub(base)
			want := time.Duration(i) * cfg.StaggerDelay
			if offset < want-5*time.Millisecond || offset > want+30*time.Millisecond {
				t.Errorf("%s started %v after %s, want about %v", name, offset, group[0], want)
			}
		}
	}
}

func TestRunAwaitsSiblingsOfCancelledItem(t *testing.T) {
	f := newFakeCatalog(names(4)...)
	f.fetchErrs["asset-00"] = []error{errors.Mark(errors.New("aborted by catalog"), failure.ErrCancelled)}
	f.fetchHook = func(name string) {
		switch name {
		case "asset-00":
			time.Sleep(20 * time.Millisecond)
		case "asset-02":
			time.Sleep(80 * time.Millisecond)
		}
	}
	cfg := testConfig()
	cfg.BatchSize = 3
	cfg.MaxConcurrency = 3

	report, err := NewRunner(f.deps()).Run(context.Background(), nil, ModeMissing, cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !report.Cancelled {
		t.Error("report should be cancelled")
	}
	if report.CancelledItems != 1 || report.Completed != 2 {
		t.Errorf("cancelled=%d completed=%d, want 1 and 2", report.CancelledItems, report.Completed)
	}
	if report.PreviewsGenerated != 2 || report.Failures() != 0 {
		t.Errorf("previews=%d failures=%d, want 2 and 0", report.PreviewsGenerated, report.Failures())
	}

	byName := map[string]ItemOutcome{}
	for _, o := range report.Outcomes {
		byName[o.Name] = o
	}
	if o := byName["asset-00"]; !o.Cancelled() {
		t.Errorf("asset-00 state = %v, want cancelled", o.State)
	}
	slow := byName["asset-02"]
	if slow.State != StateSucceeded || !slow.PreviewGenerated {
		t.Errorf("asset-02 = %+v, want a generated preview", slow)
	}
	if slow.Duration < 80*time.Millisecond {
		t.Errorf("asset-02 settled after %v, sub-group did not wait for it", slow.Duration)
	}
	if f.fetchCalls["asset-03"] != 0 {
		t.Error("next chunk should not start after a cancelled item")
	}
}

func TestRunReportsParsedMode(t *testing.T) {
	f := newFakeCatalog("a")
	report, err := NewRunner(f.deps()).Run(context.Background(), nil, Mode(""), testConfig(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Mode != ModeMissing {
		t.Errorf("Mode = %q, want %q", report.Mode, ModeMissing)
	}
}

func TestRunExternalCancellation(t *testing.T) {
	f := newFakeCatalog(names(4)...)
	rep := &recordingReporter{external: func() bool { return true }}

	report, err := NewRunner(f.deps()).Run(context.Background(), nil, ModeMissing, testConfig(), rep)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Cancelled || report.Completed != 0 {
		t.Errorf("cancelled=%v completed=%d", report.Cancelled, report.Completed)
	}
	if f.totalFetches() != 0 {
		t.Errorf("fetches = %d, want 0", f.totalFetches())
	}
	if len(rep.completed) != 1 {
		t.Errorf("OnComplete called %d times, want 1", len(rep.completed))
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	f := newFakeCatalog("slow")
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.fetchHook = func(string) {
		once.Do(func() { close(started) })
		<-release
	}
	runner := NewRunner(f.deps())

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background(), nil, ModeMissing, testConfig(), nil)
		done <- err
	}()

	<-started
	if !runner.Running() {
		t.Error("Running should be true during a run")
	}
	_, err := runner.Run(context.Background(), nil, ModeMissing, testConfig(), nil)
	if !errors.Is(err, ErrRunInProgress) {
		t.Errorf("second Run error = %v, want ErrRunInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first run: %v", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	f := newFakeCatalog("a")
	cfg := testConfig()
	cfg.MaxConcurrency = cfg.BatchSize + 1
	rep := &recordingReporter{}

	_, err := NewRunner(f.deps()).Run(context.Background(), nil, ModeMissing, cfg, rep)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	if len(rep.errors) != 1 || len(rep.completed) != 0 {
		t.Errorf("OnError %d times, OnComplete %d times", len(rep.errors), len(rep.completed))
	}
	if f.totalFetches() != 0 {
		t.Error("nothing should be fetched")
	}
}

func TestRunUnknownNamesAndFilter(t *testing.T) {
	f := newFakeCatalog("sdxl-a", "sdxl-b", "flux-a")
	cfg := testConfig()
	cfg.Filter = "sdxl-*"

	report, err := NewRunner(f.deps()).Run(context.Background(),
		[]string{"sdxl-a", "sdxl-b", "flux-a", "ghost"}, ModeMissing, cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Total != 4 || report.SkippedUnknown != 1 || report.SkippedFiltered != 1 || report.Selected != 2 {
		t.Errorf("total=%d unknown=%d filtered=%d selected=%d",
			report.Total, report.SkippedUnknown, report.SkippedFiltered, report.Selected)
	}
	if f.fetchCalls["flux-a"] != 0 {
		t.Error("filtered asset should not be fetched")
	}
}

func TestRunCountsFailures(t *testing.T) {
	f := newFakeCatalog("ok", "gone", "broken")
	delete(f.meta, "gone")
	genErr := failure.Mark(errors.New("decode"), failure.ErrPreviewGeneration)
	f.previewErrs["broken"] = []error{genErr, genErr, genErr}
	cfg := testConfig()
	cfg.BaseRetryDelay = time.Millisecond

	report, err := NewRunner(f.deps()).Run(context.Background(), nil, ModeMissing, cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.InfoFailures != 1 || report.PreviewFailures != 1 || report.PreviewsGenerated != 1 {
		t.Errorf("info=%d preview=%d generated=%d", report.InfoFailures, report.PreviewFailures, report.PreviewsGenerated)
	}
	if report.ErrorsByKind[failure.KindAPI] != 1 || report.ErrorsByKind[failure.KindPreviewGeneration] != 1 {
		t.Errorf("errors by kind = %v", report.ErrorsByKind)
	}
	if report.Completed != 3 || report.Cancelled {
		t.Errorf("completed=%d cancelled=%v", report.Completed, report.Cancelled)
	}
	if len(report.FailedNames) != 2 {
		t.Errorf("failed names = %v", report.FailedNames)
	}
}

func TestRunContextCancellation(t *testing.T) {
	f := newFakeCatalog(names(4)...)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.fetchHook = func(name string) {
		if name == "asset-00" {
			cancel()
		}
	}
	cfg := testConfig()
	cfg.BatchSize = 1
	cfg.MaxConcurrency = 1
	cfg.InterBatchDelay = 100 * time.Millisecond

	report, err := NewRunner(f.deps()).Run(ctx, nil, ModeMissing, cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Cancelled {
		t.Error("cancelling the context should cancel the run")
	}
	if f.fetchCalls["asset-03"] != 0 {
		t.Error("later chunks should not start")
	}
}

func TestRunEmptyCatalog(t *testing.T) {
	f := newFakeCatalog()
	rep := &recordingReporter{}

	report, err := NewRunner(f.deps()).Run(context.Background(), nil, ModeAll, testConfig(), rep)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Selected != 0 || len(rep.completed) != 1 {
		t.Errorf("selected=%d completions=%d", report.Selected, len(rep.completed))
	}
	if len(rep.progress) != 1 || rep.progress[0] != 100 {
		t.Errorf("progress = %v, want [100]", rep.progress)
	}
}
