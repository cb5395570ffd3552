package batch

import (
	"fmt"
	"strings"
	"time"

	"preview-fetcher/internal/failure"
	"preview-fetcher/internal/mediatypes"

	"github.com/cockroachdb/errors"
)

// Mode selects which assets a run processes.
type Mode string

const (
	// ModeMissing processes assets with neither a real nor a placeholder preview.
	ModeMissing Mode = "missing"
	// ModeExisting re-processes assets that already have a real preview.
	ModeExisting Mode = "existing"
	// ModeAll processes every asset regardless of prior status.
	ModeAll Mode = "all"
)

// ParseMode converts a user-supplied string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeMissing, ModeExisting, ModeAll:
		return m, nil
	case "":
		return ModeMissing, nil
	}
	return "", errors.WithHint(
		errors.Mark(errors.Newf("unknown mode %q", s), failure.ErrInvalidInput),
		"valid modes are missing, existing and all")
}

// Asset is one entry of the asset catalog.
type Asset struct {
	Name string `json:"name"`
	// Path is the absolute path of the asset file.
	Path string `json:"path"`
	// Subfolder is the directory of the asset relative to the asset root.
	Subfolder string `json:"subfolder"`
}

// WorkItem is an asset scheduled for processing. Index is its position in
// the flattened work list and drives progress reporting.
type WorkItem struct {
	Asset
	Index int
}

// MediaEntry is one image or video attached to an asset's metadata.
type MediaEntry struct {
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	NSFWLevel int    `json:"nsfwLevel,omitempty"`
}

// IsVideo reports whether the entry is a video. The declared type wins; the
// URL extension is used when no type was declared.
func (m MediaEntry) IsVideo() bool {
	switch strings.ToLower(m.Type) {
	case "video":
		return true
	case "image":
		return false
	}
	return mediatypes.FromURL(m.URL) == mediatypes.FileTypeVideo
}

// Metadata is the structured information returned for one asset.
type Metadata struct {
	Name         string       `json:"name"`
	ModelID      int64        `json:"modelId,omitempty"`
	VersionID    int64        `json:"versionId,omitempty"`
	BaseModel    string       `json:"baseModel,omitempty"`
	Description  string       `json:"description,omitempty"`
	TrainedWords []string     `json:"trainedWords,omitempty"`
	Media        []MediaEntry `json:"images"`
}

// PreviewResult is what the media processor reports after saving a preview.
type PreviewResult struct {
	SavedCount int    `json:"savedCount"`
	Path       string `json:"path,omitempty"`
}

// State is the position of a work item in its pipeline.
type State int

const (
	StatePending State = iota
	StateFetching
	StateGeneratingPreview
	StateNeedsPlaceholder
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFetching:
		return "fetching"
	case StateGeneratingPreview:
		return "generating_preview"
	case StateNeedsPlaceholder:
		return "needs_placeholder"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ItemOutcome is the immutable result of processing one WorkItem.
type ItemOutcome struct {
	Name              string       `json:"name"`
	Index             int          `json:"index"`
	State             State        `json:"state"`
	Succeeded         bool         `json:"succeeded"`
	MetadataPresent   bool         `json:"metadataPresent"`
	PreviewGenerated  bool         `json:"previewGenerated"`
	SkippedMediaCount int          `json:"skippedMediaCount"`
	NeedsPlaceholder  bool         `json:"needsPlaceholder"`
	ErrorKind         failure.Kind `json:"errorKind,omitempty"`
	Error             string       `json:"error,omitempty"`
	// Attempts counts metadata fetch attempts.
	Attempts int `json:"attempts"`
	// PreviewAttempts counts preview generation attempts.
	PreviewAttempts int           `json:"previewAttempts"`
	Duration        time.Duration `json:"duration"`
}

// Cancelled reports whether the item was stopped by the cancellation signal.
func (o ItemOutcome) Cancelled() bool {
	return o.State == StateCancelled
}

// maxFailedNames bounds RunReport.FailedNames.
const maxFailedNames = 50

// RunReport summarises one run. It is written only by the aggregator and is
// returned once, when the run finishes or is cancelled.
type RunReport struct {
	RunID      string    `json:"runId"`
	Mode       Mode      `json:"mode"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Total           int `json:"total"`
	Selected        int `json:"selected"`
	Missing         int `json:"missing"`
	Existing        int `json:"existing"`
	PlaceholderOnly int `json:"placeholderOnly"`

	SkippedAlreadyDone  int `json:"skippedAlreadyDone"`
	SkippedNotSelected  int `json:"skippedNotSelected"`
	SkippedFiltered     int `json:"skippedFiltered"`
	SkippedUnknown      int `json:"skippedUnknown"`
	Fetched             int `json:"fetched"`
	PreviewsGenerated   int `json:"previewsGenerated"`
	NoImagesAvailable   int `json:"noImagesAvailable"`
	VideosSkipped       int `json:"videosSkipped"`
	PlaceholdersCreated int `json:"placeholdersCreated"`
	PlaceholderFailures int `json:"placeholderFailures"`
	InfoFailures        int `json:"infoFailures"`
	PreviewFailures     int `json:"previewFailures"`
	CancelledItems      int `json:"cancelledItems"`
	Completed           int `json:"completed"`

	ErrorsByKind map[failure.Kind]int `json:"errorsByKind,omitempty"`
	FailedNames  []string             `json:"failedNames,omitempty"`
	Cancelled    bool                 `json:"cancelled"`

	Outcomes []ItemOutcome `json:"outcomes,omitempty"`
}

// Duration is the wall time of the run.
func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failures is the number of items that ended in a local failure.
func (r RunReport) Failures() int {
	return r.InfoFailures + r.PreviewFailures
}

// Summary renders the report as one human-readable line.
func (r RunReport) Summary() string {
	var b strings.Builder
	if r.Cancelled {
		b.WriteString("Cancelled: ")
	} else {
		b.WriteString("Done: ")
	}
	fmt.Fprintf(&b, "%d/%d processed, %d previews, %d placeholders",
		r.Completed, r.Selected, r.PreviewsGenerated, r.PlaceholdersCreated)
	if r.SkippedAlreadyDone > 0 {
		fmt.Fprintf(&b, ", %d already done", r.SkippedAlreadyDone)
	}
	if r.VideosSkipped > 0 {
		fmt.Fprintf(&b, ", %d videos skipped", r.VideosSkipped)
	}
	if r.InfoFailures > 0 {
		fmt.Fprintf(&b, ", %d metadata failures", r.InfoFailures)
	}
	if r.PreviewFailures > 0 {
		fmt.Fprintf(&b, ", %d preview failures", r.PreviewFailures)
	}
	if r.SkippedUnknown > 0 {
		fmt.Fprintf(&b, ", %d unknown", r.SkippedUnknown)
	}
	return b.String()
}
