package batch

import (
	"context"

	"preview-fetcher/internal/failure"
	"preview-fetcher/internal/logging"
)

// aggregator is the only writer of the RunReport. consume is called by the
// scheduler after each sub-group settles, so no locking is needed.
type aggregator struct {
	report       *RunReport
	placeholders PlaceholderWriter
	queued       map[string]struct{}
	log          *logging.Logger
}

func newAggregator(report *RunReport, placeholders PlaceholderWriter, log *logging.Logger) *aggregator {
	if report.ErrorsByKind == nil {
		report.ErrorsByKind = make(map[failure.Kind]int)
	}
	return &aggregator{
		report:       report,
		placeholders: placeholders,
		queued:       make(map[string]struct{}),
		log:          log,
	}
}

// consume folds a settled sub-group into the report, then writes
// placeholders for outcomes without usable media. Placeholder writes ignore
// cancellation of ctx and of the run signal.
func (a *aggregator) consume(ctx context.Context, outcomes []ItemOutcome) {
	r := a.report
	var pending []string

	for _, o := range outcomes {
		r.Outcomes = append(r.Outcomes, o)
		if o.ErrorKind != failure.KindNone {
			r.ErrorsByKind[o.ErrorKind]++
		}
		if o.Cancelled() {
			r.CancelledItems++
		} else {
			r.Completed++
		}
		if obs := observe(); obs != nil {
			obs.ObserveItem(o.State.String(), string(o.ErrorKind))
		}

		if o.MetadataPresent {
			r.Fetched++
		}
		r.VideosSkipped += o.SkippedMediaCount
		if o.PreviewGenerated {
			r.PreviewsGenerated++
		}

		if o.State == StateFailed {
			if o.MetadataPresent {
				r.PreviewFailures++
			} else {
				r.InfoFailures++
			}
			if len(r.FailedNames) < maxFailedNames {
				r.FailedNames = append(r.FailedNames, o.Name)
			}
		}

		if o.NeedsPlaceholder {
			r.NoImagesAvailable++
			if _, dup := a.queued[o.Name]; !dup {
				a.queued[o.Name] = struct{}{}
				pending = append(pending, o.Name)
			}
		}
	}

	a.flushPlaceholders(context.WithoutCancel(ctx), pending)
}

func (a *aggregator) flushPlaceholders(ctx context.Context, names []string) {
	if a.placeholders == nil {
		return
	}
	for _, name := range names {
		err := a.placeholders.CreatePlaceholderPreview(ctx, name)
		if obs := observe(); obs != nil {
			obs.ObservePlaceholder(err == nil)
		}
		if err != nil {
			a.report.PlaceholderFailures++
			a.log.Warn("placeholder for %s failed: %v", name, err)
			continue
		}
		a.report.PlaceholdersCreated++
	}
}
