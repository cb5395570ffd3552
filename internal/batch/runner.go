package batch

import (
	"context"
	"sync"
	"time"

	"preview-fetcher/internal/failure"
	"preview-fetcher/internal/logging"
	"preview-fetcher/internal/timing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("a preview run is already in progress")

// Dependencies wires the collaborators a Runner orchestrates. Store is optional.
type Dependencies struct {
	Fetcher      MetadataFetcher
	Generator    PreviewGenerator
	Index        AvailabilityIndex
	Placeholders PlaceholderWriter
	Assets       AssetResolver
	Store        RunStore
}

// Runner executes preview runs, one at a time.
type Runner struct {
	deps Dependencies
	log  *logging.Logger

	mu     sync.Mutex
	active *timing.Signal
}

// NewRunner creates a Runner.
func NewRunner(deps Dependencies) *Runner {
	return &Runner{deps: deps, log: logging.With("batch")}
}

// Running reports whether a run is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Cancel asks the active run to stop. It is idempotent and a no-op when no
// run is active.
func (r *Runner) Cancel() {
	r.mu.Lock()
	sig := r.active
	r.mu.Unlock()
	if sig != nil {
		sig.Cancel()
	}
}

// Run processes the named assets. A nil or empty names list means the whole
// asset catalog. Cancelling ctx has the same effect as Cancel.
//
// Errors are returned only for invalid configuration, an already active run,
// or a failure to resolve and classify the assets. Per-item failures are
// recorded in the report. reporter may be nil.
func (r *Runner) Run(ctx context.Context, names []string, mode Mode, cfg RunConfig, reporter Reporter) (RunReport, error) {
	if reporter == nil {
		reporter = NopReporter{}
	}
	if err := cfg.Validate(); err != nil {
		reporter.OnError(err.Error())
		return RunReport{}, err
	}
	parsed, err := ParseMode(string(mode))
	if err != nil {
		reporter.OnError(err.Error())
		return RunReport{}, err
	}
	mode = parsed

	sig := timing.NewSignal(reporter.IsExternallyCancelled)
	r.mu.Lock()
	if r.active != nil {
		r.mu.Unlock()
		return RunReport{}, errors.WithStack(ErrRunInProgress)
	}
	r.active = sig
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.active = nil
		r.mu.Unlock()
	}()
	if obs := observe(); obs != nil {
		obs.ObserveActive(true)
		defer obs.ObserveActive(false)
	}

	stop := context.AfterFunc(ctx, sig.Cancel)
	defer stop()

	report := RunReport{
		RunID:     uuid.NewString(),
		Mode:      mode,
		StartedAt: time.Now(),
	}

	reporter.OnStatusText("Checking existing previews")
	assets, unknown, err := r.resolve(ctx, names)
	if err != nil {
		return r.fail(report.RunID, reporter, err)
	}
	sel, err := Select(ctx, assets, mode, cfg.Filter, r.deps.Index)
	if err != nil {
		return r.fail(report.RunID, reporter, err)
	}

	report.Total = len(assets) + unknown
	report.SkippedUnknown = unknown
	report.Selected = len(sel.Items)
	report.Missing = sel.Missing
	report.Existing = sel.Existing
	report.PlaceholderOnly = sel.PlaceholderOnly
	report.SkippedAlreadyDone = sel.AlreadyDone
	report.SkippedNotSelected = sel.NotSelected
	report.SkippedFiltered = sel.Filtered

	return r.execute(ctx, sel.Items, cfg, sig, reporter, report), nil
}

func (r *Runner) fail(runID string, reporter Reporter, err error) (RunReport, error) {
	err = errors.Wrap(err, "selecting assets")
	r.log.Error("run %s: %v", runID, err)
	reporter.OnError(err.Error())
	return RunReport{}, err
}

func (r *Runner) execute(ctx context.Context, items []WorkItem, cfg RunConfig, sig *timing.Signal, reporter Reporter, report RunReport) RunReport {
	log := r.log
	log.Info("run %s: mode=%s selected=%d missing=%d existing=%d placeholder=%d",
		report.RunID, report.Mode, report.Selected, report.Missing, report.Existing, report.PlaceholderOnly)

	rc := &runContext{
		cfg:       cfg,
		sig:       sig,
		fetcher:   r.deps.Fetcher,
		generator: r.deps.Generator,
		log:       log,
	}
	agg := newAggregator(&report, r.deps.Placeholders, log)
	s := &scheduler{rc: rc, agg: agg, reporter: reporter, total: len(items)}

	if len(items) == 0 {
		reporter.OnProgress(100)
	}
	stoppedEarly := s.run(ctx, items)

	report.Cancelled = stoppedEarly || report.CancelledItems > 0
	report.FinishedAt = time.Now()

	if obs := observe(); obs != nil {
		obs.ObserveRun(string(report.Mode), report.Cancelled, report.Duration())
	}
	if r.deps.Store != nil {
		if err := r.deps.Store.SaveRun(context.WithoutCancel(ctx), report); err != nil {
			log.Warn("run %s: saving report: %v", report.RunID, err)
		}
	}

	summary := report.Summary()
	log.Info("run %s: %s (%v)", report.RunID, summary, report.Duration().Round(time.Millisecond))
	reporter.OnStatusText(summary)
	reporter.OnComplete(report)
	return report
}

// resolve maps names onto the asset catalog. Names missing from the catalog
// are counted and skipped.
func (r *Runner) resolve(ctx context.Context, names []string) ([]Asset, int, error) {
	if r.deps.Assets == nil {
		return nil, 0, errors.Mark(errors.New("no asset resolver configured"), failure.ErrInvalidInput)
	}
	catalog, err := r.deps.Assets.Assets(ctx)
	if err != nil {
		return nil, 0, err
	}
	if len(names) == 0 {
		return catalog, 0, nil
	}

	byName := make(map[string]Asset, len(catalog))
	for _, a := range catalog {
		byName[a.Name] = a
	}
	seen := make(map[string]struct{}, len(names))
	assets := make([]Asset, 0, len(names))
	unknown := 0
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		a, ok := byName[n]
		if !ok {
			r.log.Warn("unknown asset %q skipped", n)
			unknown++
			continue
		}
		assets = append(assets, a)
	}
	return assets, unknown, nil
}
