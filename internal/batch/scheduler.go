package batch

import (
	"context"
	"fmt"
	"time"

	"preview-fetcher/internal/timing"

	"golang.org/x/sync/errgroup"
)

// split cuts items into consecutive slices of at most size elements.
func split(items []WorkItem, size int) [][]WorkItem {
	if size < 1 {
		size = 1
	}
	groups := make([][]WorkItem, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		groups = append(groups, items[start:end])
	}
	return groups
}

// scheduler drives chunks and sub-groups. Everything except the pipelines
// themselves runs on the goroutine that called run.
type scheduler struct {
	rc       *runContext
	agg      *aggregator
	reporter Reporter
	total    int
}

// run processes items and reports whether it stopped early because the
// signal was set.
func (s *scheduler) run(ctx context.Context, items []WorkItem) (stoppedEarly bool) {
	cfg := s.rc.cfg
	chunks := split(items, cfg.BatchSize)

	for ci, chunk := range chunks {
		if s.rc.sig.Cancelled() {
			return true
		}
		s.rc.log.Debug("chunk %d/%d: %d items", ci+1, len(chunks), len(chunk))

		for _, group := range split(chunk, cfg.MaxConcurrency) {
			if s.rc.sig.Cancelled() {
				return true
			}
			first, last := group[0].Index, group[len(group)-1].Index
			s.reporter.OnStatusText(fmt.Sprintf("Processing %d-%d of %d", first+1, last+1, s.total))

			outcomes := s.runGroup(group)
			s.agg.consume(ctx, outcomes)

			s.reporter.OnProgress(percent(last+1, s.total))

			// an item that saw cancellation (for example from its
			// collaborator) stops new launches for the rest of the run
			if anyCancelled(outcomes) {
				s.rc.sig.Cancel()
			}
		}

		if ci < len(chunks)-1 {
			if err := timing.Delay(cfg.InterBatchDelay, s.rc.sig); err != nil {
				return true
			}
		}
	}
	return false
}

// runGroup launches every pipeline of a sub-group and waits for all of them,
// even when some report cancellation.
func (s *scheduler) runGroup(group []WorkItem) []ItemOutcome {
	outcomes := make([]ItemOutcome, len(group))
	var g errgroup.Group
	for i, item := range group {
		stagger := time.Duration(i) * s.rc.cfg.StaggerDelay
		g.Go(func() error {
			outcomes[i] = s.rc.process(item, stagger)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func anyCancelled(outcomes []ItemOutcome) bool {
	for _, o := range outcomes {
		if o.Cancelled() {
			return true
		}
	}
	return false
}

func percent(done, total int) float64 {
	if total <= 0 {
		return 100
	}
	return float64(done) * 100 / float64(total)
}
