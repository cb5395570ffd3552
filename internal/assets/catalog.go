package assets

import (
	"context"
	"sync"
	"time"

	"preview-fetcher/internal/batch"
	"preview-fetcher/internal/metrics"
)

// Catalog lists the assets under a root directory. It implements
// batch.AssetResolver; every call to Assets rescans the tree.
type Catalog struct {
	root   string
	config WalkerConfig

	mu       sync.RWMutex
	last     []batch.Asset
	lastScan time.Time
}

// NewCatalog creates a catalog rooted at root.
func NewCatalog(root string, config WalkerConfig) *Catalog {
	return &Catalog{root: root, config: config}
}

// Assets walks the root and returns one asset per distinct name. When two
// files share a name the first in path order wins and the rest are logged.
func (c *Catalog) Assets(ctx context.Context) ([]batch.Asset, error) {
	found, err := NewWalker(c.root, c.config).Walk(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(found))
	unique := found[:0]
	for _, a := range found {
		if prev, dup := seen[a.Name]; dup {
			log.Warn("Duplicate asset name %q: %s ignored, using %s", a.Name, a.Path, prev)
			continue
		}
		seen[a.Name] = a.Path
		unique = append(unique, a)
	}

	c.mu.Lock()
	c.last = unique
	c.lastScan = time.Now()
	c.mu.Unlock()

	metrics.AssetsTotal.WithLabelValues("all").Set(float64(len(unique)))
	return unique, nil
}

// Cached returns the result of the most recent scan without touching the disk.
func (c *Catalog) Cached() ([]batch.Asset, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]batch.Asset, len(c.last))
	copy(out, c.last)
	return out, c.lastScan
}
