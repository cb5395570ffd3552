package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"preview-fetcher/internal/failure"

	"github.com/cockroachdb/errors"
)

// fakeCatalog serves metadata, generates previews and tracks availability in
// memory. It implements every collaborator interface.
type fakeCatalog struct {
	mu sync.Mutex

	assets      []Asset
	meta        map[string]*Metadata
	fetchErrs   map[string][]error // consumed one per attempt
	previewErrs map[string][]error
	fetchHook   func(name string)
	fetchDelay  time.Duration

	real         map[string]bool
	placeholders map[string]bool
	checkErr     map[string]error

	fetchCalls       map[string]int
	previewCalls     map[string]int
	placeholderCalls map[string]int
	previewMedia     map[string]int

	inFlight    int
	maxInFlight int
}

func newFakeCatalog(names ...string) *fakeCatalog {
	f := &fakeCatalog{
		meta:             map[string]*Metadata{},
		fetchErrs:        map[string][]error{},
		previewErrs:      map[string][]error{},
		real:             map[string]bool{},
		placeholders:     map[string]bool{},
		checkErr:         map[string]error{},
		fetchCalls:       map[string]int{},
		previewCalls:     map[string]int{},
		placeholderCalls: map[string]int{},
		previewMedia:     map[string]int{},
	}
	for _, n := range names {
		f.assets = append(f.assets, Asset{Name: n, Path: "/models/" + n + ".safetensors"})
		f.meta[n] = &Metadata{Name: n, Media: []MediaEntry{{URL: "https://cdn.test/" + n + ".jpeg", Type: "image"}}}
	}
	return f
}

func (f *fakeCatalog) Assets(context.Context) ([]Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Asset(nil), f.assets...), nil
}

func (f *fakeCatalog) FetchMetadata(ctx context.Context, name string) (*Metadata, error) {
	f.mu.Lock()
	f.fetchCalls[name]++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	hook, delay := f.fetchHook, f.fetchDelay
	var err error
	if errs := f.fetchErrs[name]; len(errs) > 0 {
		err, f.fetchErrs[name] = errs[0], errs[1:]
	}
	m := f.meta[name]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if hook != nil {
		hook(name)
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.Mark(fmt.Errorf("HTTP 404 for %s", name), failure.ErrAPI)
	}
	return m, nil
}

func (f *fakeCatalog) GeneratePreview(ctx context.Context, meta *Metadata, name, subfolder string) (PreviewResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previewCalls[name]++
	f.previewMedia[name] = len(meta.Media)
	if errs := f.previewErrs[name]; len(errs) > 0 {
		err := errs[0]
		f.previewErrs[name] = errs[1:]
		return PreviewResult{}, err
	}
	if len(meta.Media) == 0 {
		return PreviewResult{}, errors.Mark(errors.New("no media"), failure.ErrInvalidInput)
	}
	f.real[name] = true
	return PreviewResult{SavedCount: 1}, nil
}

func (f *fakeCatalog) HasRealPreview(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkErr[name]; err != nil {
		return false, err
	}
	return f.real[name], nil
}

func (f *fakeCatalog) HasPlaceholderPreview(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.placeholders[name], nil
}

func (f *fakeCatalog) CreatePlaceholderPreview(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placeholderCalls[name]++
	f.placeholders[name] = true
	return nil
}

func (f *fakeCatalog) totalFetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.fetchCalls {
		n += c
	}
	return n
}

func (f *fakeCatalog) deps() Dependencies {
	return Dependencies{
		Fetcher:      f,
		Generator:    f,
		Index:        f,
		Placeholders: f,
		Assets:       f,
	}
}

// recordingReporter captures callbacks. onProgress, if set, runs inside OnProgress.
type recordingReporter struct {
	NopReporter
	mu         sync.Mutex
	progress   []float64
	errors     []string
	completed  []RunReport
	external   func() bool
	onProgress func(p float64)
}

func (r *recordingReporter) OnProgress(p float64) {
	r.mu.Lock()
	r.progress = append(r.progress, p)
	hook := r.onProgress
	r.mu.Unlock()
	if hook != nil {
		hook(p)
	}
}

func (r *recordingReporter) OnError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recordingReporter) OnComplete(report RunReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, report)
}

func (r *recordingReporter) IsExternallyCancelled() bool {
	if r.external == nil {
		return false
	}
	return r.external()
}

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("asset-%02d", i)
	}
	return out
}

// testConfig is fast enough for unit tests.
func testConfig() RunConfig {
	return RunConfig{
		BatchSize:         5,
		MaxConcurrency:    3,
		MetadataTimeout:   time.Second,
		PreviewTimeout:    time.Second,
		MaxRetries:        2,
		BaseRetryDelay:    5 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}
