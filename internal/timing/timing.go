package timing

import (
	"context"
	"time"

	"preview-fetcher/internal/failure"

	"github.com/cockroachdb/errors"
)

// PollInterval is how often external cancellation is checked while waiting.
const PollInterval = 25 * time.Millisecond

// Delay waits for d, returning failure.ErrCancelled early if sig is set.
func Delay(d time.Duration, sig *Signal) error {
	if sig.Cancelled() {
		return errors.WithStack(failure.ErrCancelled)
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	poll := time.NewTicker(PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-timer.C:
			return nil
		case <-sig.Done():
			return errors.WithStack(failure.ErrCancelled)
		case <-poll.C:
			if sig.Cancelled() {
				return errors.WithStack(failure.ErrCancelled)
			}
		}
	}
}

type outcome[T any] struct {
	val T
	err error
}

// WithTimeout races op against limit and sig. Whichever finishes first wins:
// op's result, failure.ErrTimeout, or failure.ErrCancelled.
//
// The losing op is not waited for. Its context is cancelled when WithTimeout
// returns, but that is only a hint: a network call may still complete in the
// background, and its side effects (such as a server-side write) may happen
// after the caller has already seen Timeout or Cancelled. limit <= 0 disables
// the timer.
func WithTimeout[T any](sig *Signal, limit time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if sig.Cancelled() {
		return zero, errors.WithStack(failure.ErrCancelled)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Buffered so the goroutine can always deliver and exit once we stop listening.
	results := make(chan outcome[T], 1)
	go func() {
		v, err := op(ctx)
		results <- outcome[T]{val: v, err: err}
	}()

	var deadline <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		deadline = timer.C
	}
	poll := time.NewTicker(PollInterval)
	defer poll.Stop()

	for {
		select {
		case r := <-results:
			return r.val, r.err
		case <-deadline:
			return zero, errors.Wrapf(failure.ErrTimeout, "exceeded %v", limit)
		case <-sig.Done():
			return zero, errors.WithStack(failure.ErrCancelled)
		case <-poll.C:
			if sig.Cancelled() {
				return zero, errors.WithStack(failure.ErrCancelled)
			}
		}
	}
}
