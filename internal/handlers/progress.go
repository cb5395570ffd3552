package handlers

import (
	"sync"
	"sync/atomic"
	"time"

	"preview-fetcher/internal/batch"
)

// maxRecentErrors bounds the error list kept for the status endpoint.
const maxRecentErrors = 20

// ProgressSnapshot is the JSON view of the current or last run.
type ProgressSnapshot struct {
	Running         bool             `json:"running"`
	CancelRequested bool             `json:"cancelRequested"`
	Percent         float64          `json:"percent"`
	StatusText      string           `json:"statusText"`
	StartedAt       *time.Time       `json:"startedAt,omitempty"`
	RecentErrors    []string         `json:"recentErrors"`
	LastReport      *batch.RunReport `json:"lastReport,omitempty"`
}

// Progress records callbacks from the running batch and serves snapshots to
// the status endpoint. It implements batch.Reporter.
type Progress struct {
	mu         sync.RWMutex
	running    bool
	percent    float64
	statusText string
	startedAt  time.Time
	errors     []string
	lastReport *batch.RunReport

	cancel atomic.Bool
}

// NewProgress creates an idle tracker.
func NewProgress() *Progress {
	return &Progress{statusText: "idle"}
}

// begin resets per-run state. The last report is kept until a new one arrives.
func (p *Progress) begin() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = true
	p.percent = 0
	p.statusText = "starting"
	p.startedAt = time.Now()
	p.errors = nil
	p.cancel.Store(false)
}

// end marks the tracker idle after Run returned.
func (p *Progress) end() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
}

// requestCancel makes IsExternallyCancelled report true until the next run.
func (p *Progress) requestCancel() {
	p.cancel.Store(true)
}

func (p *Progress) OnProgress(percent float64) {
	p.mu.Lock()
	p.percent = percent
	p.mu.Unlock()
}

func (p *Progress) OnStatusText(text string) {
	p.mu.Lock()
	p.statusText = text
	p.mu.Unlock()
}

func (p *Progress) OnError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors = append(p.errors, msg)
	if len(p.errors) > maxRecentErrors {
		p.errors = p.errors[len(p.errors)-maxRecentErrors:]
	}
}

func (p *Progress) OnComplete(report batch.RunReport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// failed item names go to the error list; outcomes are dropped to keep
	// status responses small
	for _, name := range report.FailedNames {
		p.errors = append(p.errors, "failed: "+name)
	}
	if len(p.errors) > maxRecentErrors {
		p.errors = p.errors[len(p.errors)-maxRecentErrors:]
	}
	report.Outcomes = nil
	p.lastReport = &report
}

func (p *Progress) IsExternallyCancelled() bool {
	return p.cancel.Load()
}

// Snapshot returns a copy of the tracker state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := ProgressSnapshot{
		Running:         p.running,
		CancelRequested: p.cancel.Load(),
		Percent:         p.percent,
		StatusText:      p.statusText,
		RecentErrors:    append([]string{}, p.errors...),
	}
	if !p.startedAt.IsZero() {
		started := p.startedAt
		s.StartedAt = &started
	}
	if p.lastReport != nil {
		r := *p.lastReport
		s.LastReport = &r
	}
	return s
}
