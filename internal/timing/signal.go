package timing

import (
	"sync"
	"sync/atomic"
)

// Signal is a run-scoped cancellation flag. It is set at most once and never
// cleared. Besides Cancel, it can observe an external source (for example a
// UI "stop" button) that is polled whenever Cancelled is consulted.
type Signal struct {
	once      sync.Once
	done      chan struct{}
	cancelled atomic.Bool
	external  func() bool
}

// NewSignal creates a Signal. external may be nil.
func NewSignal(external func() bool) *Signal {
	return &Signal{
		done:     make(chan struct{}),
		external: external,
	}
}

// Cancel sets the signal. Safe to call repeatedly and concurrently.
func (s *Signal) Cancel() {
	s.once.Do(func() {
		s.cancelled.Store(true)
		close(s.done)
	})
}

// Cancelled reports whether the signal is set. An external source reporting
// true latches the signal.
func (s *Signal) Cancelled() bool {
	if s == nil {
		return false
	}
	if s.cancelled.Load() {
		return true
	}
	if s.external != nil && s.external() {
		s.Cancel()
		return true
	}
	return false
}

// Done returns a channel closed once Cancel has been called (directly or by
// latching an external request).
func (s *Signal) Done() <-chan struct{} {
	if s == nil {
		return nil
	}
	return s.done
}
