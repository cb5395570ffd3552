package batch

import (
	"context"
	"path"

	"preview-fetcher/internal/logging"
	"preview-fetcher/internal/workers"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// Availability is the prior preview status of an asset.
type Availability int

const (
	AvailabilityMissing Availability = iota
	AvailabilityExisting
	AvailabilityPlaceholderOnly
)

// Selection is the result of classifying the requested assets.
type Selection struct {
	Items []WorkItem

	Missing         int
	Existing        int
	PlaceholderOnly int
	// AlreadyDone counts unselected assets that already have a real or
	// placeholder preview.
	AlreadyDone int
	// NotSelected counts unselected assets with no preview (mode=existing).
	NotSelected int
	// Filtered counts assets excluded by the inclusion filter.
	Filtered int
}

// Select classifies assets with index and picks those matching mode. The
// filter glob, if set, is applied first. Order of assets is preserved and
// work items are numbered from 0.
//
// An availability check that fails is logged and the asset counts as missing;
// processing it again is harmless.
func Select(ctx context.Context, assets []Asset, mode Mode, filter string, index AvailabilityIndex) (Selection, error) {
	var sel Selection
	log := logging.With("selection")

	candidates := assets
	if filter != "" {
		candidates = make([]Asset, 0, len(assets))
		for _, a := range assets {
			ok, err := path.Match(filter, a.Name)
			if err != nil {
				return sel, errors.Wrapf(err, "filter %q", filter)
			}
			if ok {
				candidates = append(candidates, a)
			} else {
				sel.Filtered++
			}
		}
	}

	status := make([]Availability, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForIO(16))
	for i, a := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			status[i] = classify(gctx, index, a.Name, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sel, errors.Wrap(err, "checking preview availability")
	}

	for i, a := range candidates {
		st := status[i]
		switch st {
		case AvailabilityMissing:
			sel.Missing++
		case AvailabilityExisting:
			sel.Existing++
		case AvailabilityPlaceholderOnly:
			sel.PlaceholderOnly++
		}

		if !selects(mode, st) {
			if st == AvailabilityMissing {
				sel.NotSelected++
			} else {
				sel.AlreadyDone++
			}
			continue
		}
		sel.Items = append(sel.Items, WorkItem{Asset: a, Index: len(sel.Items)})
	}

	if obs := observe(); obs != nil {
		obs.ObserveSelection(sel.Missing, sel.Existing, sel.PlaceholderOnly)
	}
	return sel, nil
}

func classify(ctx context.Context, index AvailabilityIndex, name string, log *logging.Logger) Availability {
	hasReal, err := index.HasRealPreview(ctx, name)
	if err != nil {
		log.Warn("real preview check for %s failed: %v", name, err)
		return AvailabilityMissing
	}
	if hasReal {
		return AvailabilityExisting
	}
	placeholder, err := index.HasPlaceholderPreview(ctx, name)
	if err != nil {
		log.Warn("placeholder check for %s failed: %v", name, err)
		return AvailabilityMissing
	}
	if placeholder {
		return AvailabilityPlaceholderOnly
	}
	return AvailabilityMissing
}

func selects(mode Mode, st Availability) bool {
	switch mode {
	case ModeAll:
		return true
	case ModeExisting:
		return st == AvailabilityExisting
	default:
		return st == AvailabilityMissing
	}
}
