package memory

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestConfigure(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		wantSource string
		wantLimit  int64
		wantRatio  float64
	}{
		{"nothing set", nil, "none", 0, 0},
		{"explicit GOMEMLIMIT wins", map[string]string{"GOMEMLIMIT": "500MiB", "MEMORY_LIMIT": "1000"}, "GOMEMLIMIT", 500 << 20, 0},
		{"container limit", map[string]string{"MEMORY_LIMIT": "1000"}, "MEMORY_LIMIT", 800, DefaultMemoryRatio},
		{"custom ratio", map[string]string{"MEMORY_LIMIT": "1000", "MEMORY_RATIO": "0.5"}, "MEMORY_LIMIT", 500, 0.5},
		{"ratio out of range", map[string]string{"MEMORY_LIMIT": "1000", "MEMORY_RATIO": "1.5"}, "MEMORY_LIMIT", 800, DefaultMemoryRatio},
		{"bad container limit", map[string]string{"MEMORY_LIMIT": "lots"}, "none", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var set int64 = -1
			setLimit := func(l int64) int64 {
				if l < 0 {
					return 500 << 20
				}
				set = l
				return l
			}
			getenv := func(k string) string { return tt.env[k] }

			got := configure(getenv, setLimit)
			if got.Source != tt.wantSource || got.GoMemLimit != tt.wantLimit || got.Ratio != tt.wantRatio {
				t.Errorf("configure = %+v", got)
			}
			if tt.wantSource == "MEMORY_LIMIT" && set != tt.wantLimit {
				t.Errorf("SetMemoryLimit(%d), want %d", set, tt.wantLimit)
			}
			if tt.wantSource != "MEMORY_LIMIT" && set != -1 {
				t.Errorf("limit changed to %d", set)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		512:     "512 B",
		2048:    "2.0 KiB",
		5 << 20: "5.0 MiB",
		3 << 30: "3.0 GiB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func newTestGate(alloc *uint64) *Gate {
	g := NewGate(GateConfig{LimitBytes: 1000, PauseAt: 0.85, ResumeAt: 0.7, CheckInterval: time.Millisecond})
	g.sample = func() uint64 { return *alloc }
	return g
}

func TestGateHysteresis(t *testing.T) {
	alloc := uint64(100)
	g := newTestGate(&alloc)

	steps := []struct {
		alloc  uint64
		paused bool
	}{
		{100, false},
		{800, false}, // between marks, stays open
		{900, true},
		{750, true}, // between marks, stays closed
		{600, false},
	}
	for i, s := range steps {
		alloc = s.alloc
		g.check()
		if g.Paused() != s.paused {
			t.Errorf("step %d (alloc %d): paused = %v, want %v", i, s.alloc, g.Paused(), s.paused)
		}
	}
	if u := g.Usage(); u != 0.6 {
		t.Errorf("Usage = %v, want 0.6", u)
	}
}

func TestGateWaitReleasedOnResume(t *testing.T) {
	alloc := uint64(950)
	g := newTestGate(&alloc)
	g.check()

	done := make(chan error, 1)
	go func() { done <- g.Wait(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Wait returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	alloc = 100
	g.check()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait not released after resume")
	}
}

func TestGateWaitHonoursContext(t *testing.T) {
	alloc := uint64(950)
	g := newTestGate(&alloc)
	g.check()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := g.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want deadline exceeded", err)
	}
}

func TestGateStopReleasesWaiters(t *testing.T) {
	alloc := uint64(950)
	g := newTestGate(&alloc)
	g.check()

	g.Stop()
	g.Stop()
	if err := g.Wait(context.Background()); err != nil {
		t.Errorf("Wait after Stop = %v", err)
	}
}

func TestGateWithoutLimitNeverPauses(t *testing.T) {
	g := &Gate{resume: make(chan struct{}), stop: make(chan struct{})}
	g.Start()
	if err := g.Wait(context.Background()); err != nil || g.Paused() || g.Usage() != 0 {
		t.Errorf("unlimited gate: err=%v paused=%v usage=%v", err, g.Paused(), g.Usage())
	}
}
