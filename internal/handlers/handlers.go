package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"preview-fetcher/internal/batch"
	"preview-fetcher/internal/logging"
)

var log = logging.With("handlers")

// BatchRunner is the part of batch.Runner the API drives.
type BatchRunner interface {
	Run(ctx context.Context, names []string, mode batch.Mode, cfg batch.RunConfig, reporter batch.Reporter) (batch.RunReport, error)
	Cancel()
}

// RunHistory lists persisted runs, newest first.
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]batch.RunReport, error)
}

// Options wires the handlers to their collaborators.
type Options struct {
	Runner   BatchRunner
	History  RunHistory
	Assets   batch.AssetResolver
	Index    batch.AvailabilityIndex
	Defaults batch.RunConfig
	// OnRunFinished is called after every background run, e.g. to refresh
	// cached statistics. Optional.
	OnRunFinished func(batch.RunReport)
}

type Handlers struct {
	runner        BatchRunner
	history       RunHistory
	assets        batch.AssetResolver
	index         batch.AvailabilityIndex
	defaults      batch.RunConfig
	onRunFinished func(batch.RunReport)

	progress  *Progress
	active    atomic.Bool
	runs      sync.WaitGroup
	baseCtx   context.Context
	stop      context.CancelFunc
	startTime time.Time
}

func New(opts Options) *Handlers {
	ctx, stop := context.WithCancel(context.Background())
	return &Handlers{
		runner:        opts.Runner,
		history:       opts.History,
		assets:        opts.Assets,
		index:         opts.Index,
		defaults:      opts.Defaults,
		onRunFinished: opts.OnRunFinished,
		progress:      NewProgress(),
		baseCtx:       ctx,
		stop:          stop,
		startTime:     time.Now(),
	}
}

// Progress exposes the tracker of background runs.
func (h *Handlers) Progress() *Progress {
	return h.progress
}

// Shutdown cancels an active background run and waits for it to finish or
// for ctx to expire.
func (h *Handlers) Shutdown(ctx context.Context) error {
	if h.active.Load() {
		h.progress.requestCancel()
		h.runner.Cancel()
	}
	h.stop()

	done := make(chan struct{})
	go func() {
		h.runs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
