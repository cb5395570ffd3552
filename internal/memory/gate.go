package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"preview-fetcher/internal/metrics"
)

// GateConfig configures a Gate.
type GateConfig struct {
	// LimitBytes is the heap limit; 0 uses GOMEMLIMIT. Without either the
	// gate never closes.
	LimitBytes int64
	// PauseAt closes the gate at this fraction of the limit.
	PauseAt float64
	// ResumeAt reopens it once usage drops below this fraction.
	ResumeAt float64
	// CheckInterval is how often heap usage is sampled.
	CheckInterval time.Duration
}

// DefaultGateConfig returns the defaults used by the server and the CLI.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		PauseAt:       0.85,
		ResumeAt:      0.70,
		CheckInterval: 2 * time.Second,
	}
}

// Gate holds back image decoding while the heap is close to its limit.
// The preview processor calls Wait before every decode.
type Gate struct {
	config GateConfig
	limit  int64
	sample func() uint64

	mu      sync.RWMutex
	current uint64
	paused  bool
	resume  chan struct{}

	stopOnce sync.Once
	stop     chan struct{}
}

// NewGate creates a Gate. Call Start to begin sampling.
func NewGate(config GateConfig) *Gate {
	limit := config.LimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < 1<<62 {
			limit = l
		}
	}
	if limit == 0 {
		log.Debug("No memory limit configured, decode backpressure disabled")
	}
	return &Gate{
		config: config,
		limit:  limit,
		sample: heapAlloc,
		resume: make(chan struct{}),
		stop:   make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start samples heap usage until Stop. It is a no-op without a limit.
func (g *Gate) Start() {
	if g.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(g.config.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.check()
			case <-g.stop:
				return
			}
		}
	}()
}

// Stop ends sampling and releases every waiter.
func (g *Gate) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

func (g *Gate) check() {
	alloc := g.sample()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = alloc
	usage := float64(alloc) / float64(g.limit)
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case !g.paused && usage >= g.config.PauseAt:
		log.Warn("Heap at %.0f%% of limit, holding back decodes", usage*100)
		g.paused = true
		metrics.MemoryPaused.Set(1)
		go runtime.GC()
	case g.paused && usage < g.config.ResumeAt:
		log.Info("Heap at %.0f%% of limit, resuming decodes", usage*100)
		g.paused = false
		metrics.MemoryPaused.Set(0)
		close(g.resume)
		g.resume = make(chan struct{})
	}
}

// Wait returns immediately unless the gate is closed, then blocks until it
// reopens, the gate stops or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.RLock()
	if !g.paused {
		g.mu.RUnlock()
		return nil
	}
	resume := g.resume
	g.mu.RUnlock()

	select {
	case <-resume:
		return nil
	case <-g.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Paused reports whether decodes are being held back.
func (g *Gate) Paused() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paused
}

// Usage is the last sampled heap usage as a fraction of the limit.
func (g *Gate) Usage() float64 {
	if g.limit == 0 {
		return 0
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return float64(g.current) / float64(g.limit)
}
