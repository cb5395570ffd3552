package metrics

import (
	"time"

	"preview-fetcher/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current preview statistics
type Stats struct {
	TotalAssets       int
	RealPreviews      int
	PlaceholderAssets int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	AssetsTotal.WithLabelValues("all").Set(float64(stats.TotalAssets))
	AssetsTotal.WithLabelValues("real").Set(float64(stats.RealPreviews))
	AssetsTotal.WithLabelValues("placeholder").Set(float64(stats.PlaceholderAssets))

	logging.Debug("Metrics collected: assets=%d, real=%d, placeholders=%d",
		stats.TotalAssets, stats.RealPreviews, stats.PlaceholderAssets)
}
