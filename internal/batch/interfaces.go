package batch

import "context"

// MetadataFetcher returns structured info for one asset. Errors should be
// marked with failure.ErrNetwork, failure.ErrAPI or failure.ErrTimeout.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, name string) (*Metadata, error)
}

// PreviewGenerator derives and saves a preview from the metadata's media.
// An empty media list must fail with failure.ErrInvalidInput.
type PreviewGenerator interface {
	GeneratePreview(ctx context.Context, meta *Metadata, name, subfolder string) (PreviewResult, error)
}

// AvailabilityIndex reports prior preview status for an asset.
type AvailabilityIndex interface {
	HasRealPreview(ctx context.Context, name string) (bool, error)
	HasPlaceholderPreview(ctx context.Context, name string) (bool, error)
}

// PlaceholderWriter records that an asset has no usable media. Calling it
// twice for the same asset must be safe.
type PlaceholderWriter interface {
	CreatePlaceholderPreview(ctx context.Context, name string) error
}

// AssetResolver lists the asset catalog.
type AssetResolver interface {
	Assets(ctx context.Context) ([]Asset, error)
}

// RunStore persists finished run reports. Optional.
type RunStore interface {
	SaveRun(ctx context.Context, report RunReport) error
}

// Reporter receives progress for one run. OnProgress, OnStatusText, OnError
// and OnComplete are called from the goroutine running Runner.Run, never
// concurrently. IsExternallyCancelled is polled from every pipeline goroutine
// and must be safe for concurrent use.
type Reporter interface {
	OnProgress(percent float64)
	OnStatusText(text string)
	// OnError is called once for run-level failures (invalid configuration,
	// selection failure). Per-item failures are reported in the RunReport.
	OnError(msg string)
	// OnComplete is called exactly once when a run that got past validation
	// and selection finishes or is cancelled.
	OnComplete(report RunReport)
	// IsExternallyCancelled is polled concurrently; returning true cancels
	// the run.
	IsExternallyCancelled() bool
}

// NopReporter ignores every callback. Embed it to implement only some methods.
type NopReporter struct{}

func (NopReporter) OnProgress(float64)          {}
func (NopReporter) OnStatusText(string)         {}
func (NopReporter) OnError(string)              {}
func (NopReporter) OnComplete(RunReport)        {}
func (NopReporter) IsExternallyCancelled() bool { return false }
