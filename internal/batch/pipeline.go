package batch

import (
	"context"
	"time"

	"preview-fetcher/internal/failure"
	"preview-fetcher/internal/logging"
	"preview-fetcher/internal/retry"
	"preview-fetcher/internal/timing"

	"github.com/cockroachdb/errors"
)

// runContext is everything a pipeline needs for one run. It is created by
// Runner.Run and never shared between runs.
type runContext struct {
	cfg       RunConfig
	sig       *timing.Signal
	fetcher   MetadataFetcher
	generator PreviewGenerator
	log       *logging.Logger
}

// process runs one item through fetch, media filtering and preview
// generation. It always returns exactly one outcome.
func (rc *runContext) process(item WorkItem, stagger time.Duration) ItemOutcome {
	start := time.Now()
	out := ItemOutcome{Name: item.Name, Index: item.Index, State: StatePending}
	defer func() { out.Duration = time.Since(start) }()

	if err := timing.Delay(stagger, rc.sig); err != nil {
		return rc.cancelled(out)
	}

	out.State = StateFetching
	meta, attempts, err := retry.Do(rc.sig, retry.StageFetch, item.Name, rc.cfg.fetchPolicy(),
		func(ctx context.Context, _ int) (*Metadata, error) {
			m, err := rc.fetcher.FetchMetadata(ctx, item.Name)
			if err == nil && m == nil {
				err = errors.Mark(errors.Newf("empty metadata for %s", item.Name), failure.ErrAPI)
			}
			return m, err
		})
	out.Attempts = attempts
	if err != nil {
		if failure.IsCancelled(err) {
			return rc.cancelled(out)
		}
		out.State = StateFailed
		out.ErrorKind = fetchKind(err)
		out.Error = err.Error()
		rc.log.Warn("metadata for %s failed after %d attempts: %v", item.Name, attempts, err)
		return out
	}
	out.MetadataPresent = true

	media := meta.Media
	if rc.cfg.SkipVideoPreviews {
		media = make([]MediaEntry, 0, len(meta.Media))
		for _, m := range meta.Media {
			if m.IsVideo() {
				out.SkippedMediaCount++
				continue
			}
			media = append(media, m)
		}
	}
	if len(media) == 0 {
		return rc.needsPlaceholder(out)
	}

	filtered := *meta
	filtered.Media = media

	out.State = StateGeneratingPreview
	res, attempts, err := retry.Do(rc.sig, retry.StagePreview, item.Name, rc.cfg.previewPolicy(),
		func(ctx context.Context, _ int) (PreviewResult, error) {
			return rc.generator.GeneratePreview(ctx, &filtered, item.Name, item.Subfolder)
		})
	out.PreviewAttempts = attempts
	if err != nil {
		if failure.IsCancelled(err) {
			return rc.cancelled(out)
		}
		out.State = StateFailed
		out.ErrorKind = failure.KindPreviewGeneration
		out.Error = err.Error()
		rc.log.Warn("preview for %s failed after %d attempts: %v", item.Name, attempts, err)
		return out
	}
	if res.SavedCount == 0 {
		return rc.needsPlaceholder(out)
	}

	out.State = StateSucceeded
	out.Succeeded = true
	out.PreviewGenerated = true
	return out
}

func (rc *runContext) needsPlaceholder(out ItemOutcome) ItemOutcome {
	out.State = StateSucceeded
	out.Succeeded = true
	out.NeedsPlaceholder = true
	rc.log.Debug("%s has no usable media", out.Name)
	return out
}

func (rc *runContext) cancelled(out ItemOutcome) ItemOutcome {
	out.State = StateCancelled
	out.ErrorKind = failure.KindCancelled
	return out
}

// fetchKind narrows a metadata failure to timeout, network, api_error or unknown.
func fetchKind(err error) failure.Kind {
	switch k := failure.Classify(err); k {
	case failure.KindTimeout, failure.KindNetwork, failure.KindAPI:
		return k
	}
	return failure.KindUnknown
}
