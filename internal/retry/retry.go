// Package retry runs a collaborator call with a growing per-attempt timeout
// and exponential, cancellable backoff between attempts.
package retry

import (
	"context"
	"math"
	"time"

	"preview-fetcher/internal/failure"
	"preview-fetcher/internal/logging"
	"preview-fetcher/internal/timing"

	"github.com/cockroachdb/errors"
)

// Stage names used for logging and metric labels.
const (
	StageFetch   = "fetch"
	StagePreview = "preview"
)

var log = logging.With("retry")

// Policy configures one retried stage.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseTimeout bounds the first attempt; attempt n gets BaseTimeout*Multiplier^(n-1).
	BaseTimeout time.Duration
	// BaseDelay is the wait after the first failure; it grows like the timeout.
	BaseDelay time.Duration
	// Multiplier scales timeout and delay per attempt. Values below 1 are treated as 1.
	Multiplier float64
}

// TimeoutFor returns the timeout for the given 1-based attempt.
func (p Policy) TimeoutFor(attempt int) time.Duration {
	return scale(p.BaseTimeout, p.Multiplier, attempt)
}

// DelayAfter returns the backoff to wait after the given failed 1-based attempt.
func (p Policy) DelayAfter(attempt int) time.Duration {
	return scale(p.BaseDelay, p.Multiplier, attempt)
}

func scale(base time.Duration, multiplier float64, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if multiplier < 1 {
		multiplier = 1
	}
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(base) * math.Pow(multiplier, float64(attempt-1)))
}

// Do calls op until it succeeds, the retry budget is spent, or sig is set.
// It returns the value, the number of attempts made, and the last error.
//
// A cancellation (including a timeout observed while sig is set) stops
// immediately and is returned as failure.ErrCancelled. Every other error is
// retried while attempts remain.
func Do[T any](sig *timing.Signal, stage, name string, p Policy, op func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	var zero T
	start := time.Now()
	maxAttempts := p.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	defer func() {
		if o := observe(); o != nil {
			o.ObserveDuration(stage, time.Since(start).Seconds())
		}
	}()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if sig.Cancelled() {
			return zero, attempt - 1, errors.WithStack(failure.ErrCancelled)
		}
		if attempt > 1 {
			if o := observe(); o != nil {
				o.ObserveAttempt(stage)
			}
		}

		n := attempt
		v, err := timing.WithTimeout(sig, p.TimeoutFor(attempt), func(ctx context.Context) (T, error) {
			return op(ctx, n)
		})
		if err == nil {
			if attempt > 1 {
				log.Info("%s %s succeeded on attempt %d", stage, name, attempt)
				if o := observe(); o != nil {
					o.ObserveSuccess(stage)
				}
			}
			return v, attempt, nil
		}

		if failure.IsCancelled(err) || (errors.Is(err, failure.ErrTimeout) && sig.Cancelled()) {
			log.Debug("%s %s cancelled on attempt %d", stage, name, attempt)
			return zero, attempt, errors.WithStack(failure.ErrCancelled)
		}

		lastErr = err

		// Don't sleep after the last attempt
		if attempt < maxAttempts {
			backoff := p.DelayAfter(attempt)
			log.Debug("%s %s failed (%v), retrying in %v (attempt %d/%d)",
				stage, name, err, backoff, attempt, maxAttempts)
			if derr := timing.Delay(backoff, sig); derr != nil {
				return zero, attempt, derr
			}
		}
	}

	log.Warn("%s %s failed after %d attempts: %v", stage, name, maxAttempts, lastErr)
	if o := observe(); o != nil {
		o.ObserveFailure(stage, string(failure.Classify(lastErr)))
	}
	return zero, maxAttempts, lastErr
}
