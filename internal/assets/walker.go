package assets

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"preview-fetcher/internal/batch"
	"preview-fetcher/internal/logging"
	"preview-fetcher/internal/mediatypes"
	"preview-fetcher/internal/metrics"
	"preview-fetcher/internal/workers"
)

var log = logging.With("assets")

// WalkerConfig configures the parallel directory walker
type WalkerConfig struct {
	// NumWorkers is the number of parallel workers (0 = auto)
	NumWorkers int
	// ChannelBuffer is the size of the work channel buffer
	ChannelBuffer int
	// SkipHidden skips files and directories starting with "."
	SkipHidden bool
}

// DefaultWalkerConfig returns defaults that are safe for network filesystems.
// PREVIEW_WORKERS overrides the worker count.
func DefaultWalkerConfig() WalkerConfig {
	return WalkerConfig{
		NumWorkers:    workers.ForIO(4),
		ChannelBuffer: 256,
		SkipHidden:    true,
	}
}

type fileJob struct {
	path    string
	relPath string
	entry   fs.DirEntry
}

type fileResult struct {
	asset *batch.Asset
	err   error
}

// Walker walks the asset root with a pool of workers that classify entries.
type Walker struct {
	config WalkerConfig
	root   string

	jobs    chan fileJob
	results chan fileResult
	wg      sync.WaitGroup

	filesSeen   atomic.Int64
	assetsFound atomic.Int64
	errorsCount atomic.Int64
}

// NewWalker creates a walker for root.
func NewWalker(root string, config WalkerConfig) *Walker {
	if config.NumWorkers <= 0 {
		config.NumWorkers = DefaultWalkerConfig().NumWorkers
	}
	if config.ChannelBuffer <= 0 {
		config.ChannelBuffer = DefaultWalkerConfig().ChannelBuffer
	}
	return &Walker{
		config:  config,
		root:    root,
		jobs:    make(chan fileJob, config.ChannelBuffer),
		results: make(chan fileResult, config.ChannelBuffer),
	}
}

// Walk returns every model file below the root, sorted by path. A cancelled
// context stops the walk and returns ctx.Err() with the assets found so far.
func (w *Walker) Walk(ctx context.Context) ([]batch.Asset, error) {
	log.Debug("Starting asset walk of %s with %d workers", w.root, w.config.NumWorkers)
	startTime := time.Now()

	if info, err := os.Stat(w.root); err != nil {
		return nil, err
	} else if !info.IsDir() {
		return nil, &fs.PathError{Op: "walk", Path: w.root, Err: fs.ErrInvalid}
	}

	for i := 0; i < w.config.NumWorkers; i++ {
		w.wg.Add(1)
		go w.worker(ctx)
	}

	var found []batch.Asset
	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		for result := range w.results {
			if result.err != nil {
				w.errorsCount.Add(1)
				metrics.AssetScanErrors.Inc()
				log.Debug("Error processing entry: %v", result.err)
				continue
			}
			if result.asset != nil {
				found = append(found, *result.asset)
			}
		}
	}()

	w.walkAndEnqueue(ctx)
	close(w.jobs)
	w.wg.Wait()
	close(w.results)
	collectorWg.Wait()

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })

	duration := time.Since(startTime)
	metrics.AssetScanDuration.Set(duration.Seconds())
	log.Info("Asset walk complete: %d assets out of %d files in %v (errors: %d)",
		w.assetsFound.Load(), w.filesSeen.Load(), duration, w.errorsCount.Load())

	if err := ctx.Err(); err != nil {
		return found, err
	}
	return found, nil
}

func (w *Walker) walkAndEnqueue(ctx context.Context) {
	_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return fs.SkipAll
		}

		if err != nil {
			log.Warn("Error accessing path %s: %v", path, err)
			w.errorsCount.Add(1)
			metrics.AssetScanErrors.Inc()
			return nil
		}

		relPath, relErr := filepath.Rel(w.root, path)
		if relErr != nil || relPath == "." {
			return nil //nolint:nilerr // skip this entry, keep walking
		}

		if w.config.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		select {
		case w.jobs <- fileJob{path: path, relPath: relPath, entry: d}:
		case <-ctx.Done():
			return fs.SkipAll
		}
		return nil
	})
}

func (w *Walker) worker(ctx context.Context) {
	defer w.wg.Done()

	for job := range w.jobs {
		if ctx.Err() != nil {
			continue
		}
		result := w.processFile(job)
		w.results <- result
	}
}

// processFile turns a regular model file into an Asset; anything else yields
// an empty result.
func (w *Walker) processFile(job fileJob) fileResult {
	w.filesSeen.Add(1)

	name := job.entry.Name()
	ext := strings.ToLower(filepath.Ext(name))
	if !mediatypes.IsModelFile(ext) {
		return fileResult{}
	}

	// symlinks are followed; anything that is not a regular file is ignored
	info, err := os.Stat(job.path)
	if err != nil {
		return fileResult{err: err}
	}
	if !info.Mode().IsRegular() {
		return fileResult{}
	}

	subfolder := filepath.ToSlash(filepath.Dir(job.relPath))
	if subfolder == "." {
		subfolder = ""
	}

	w.assetsFound.Add(1)
	return fileResult{asset: &batch.Asset{
		Name:      strings.TrimSuffix(name, filepath.Ext(name)),
		Path:      job.path,
		Subfolder: subfolder,
	}}
}

// Stats returns processing counters for the last walk.
func (w *Walker) Stats() (files, assets, errors int64) {
	return w.filesSeen.Load(), w.assetsFound.Load(), w.errorsCount.Load()
}
