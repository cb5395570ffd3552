/*
Package timing provides the cancellable waiting primitives used by every
asynchronous step of a preview run.

Cancellation is cooperative. A Signal is set once per run and observed at
well-defined points: before each attempt, while sleeping in Delay, and while
racing an operation in WithTimeout. Nothing is forcibly terminated.

# Delay

	if err := timing.Delay(backoff, sig); err != nil {
	    return err // failure.ErrCancelled
	}

Delay wakes at least every PollInterval (25ms) to consult the signal, so an
external cancellation source that can only be polled is honoured promptly.

# WithTimeout

	meta, err := timing.WithTimeout(sig, 30*time.Second, func(ctx context.Context) (*Metadata, error) {
	    return client.FetchMetadata(ctx, name)
	})

WithTimeout returns as soon as the operation, the timer, or the signal
resolves. The operation keeps running in its own goroutine if it lost the
race; callers must assume it may still have side effects.
*/
package timing
