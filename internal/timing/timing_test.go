package timing

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"preview-fetcher/internal/failure"

	"github.com/cockroachdb/errors"
)

func TestSignalCancelIdempotent(t *testing.T) {
	sig := NewSignal(nil)
	if sig.Cancelled() {
		t.Fatal("new signal should not be cancelled")
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sig.Cancel()
		}()
	}
	wg.Wait()

	if !sig.Cancelled() {
		t.Error("signal should be cancelled")
	}
	select {
	case <-sig.Done():
	default:
		t.Error("Done channel should be closed")
	}
}

func TestSignalExternalLatches(t *testing.T) {
	var external atomic.Bool
	sig := NewSignal(external.Load)

	if sig.Cancelled() {
		t.Fatal("should not be cancelled before external request")
	}
	external.Store(true)
	if !sig.Cancelled() {
		t.Fatal("external request should cancel")
	}
	external.Store(false)
	if !sig.Cancelled() {
		t.Error("signal must never be cleared once set")
	}
}

func TestNilSignal(t *testing.T) {
	var sig *Signal
	if sig.Cancelled() {
		t.Error("nil signal should never be cancelled")
	}
	if err := Delay(5*time.Millisecond, sig); err != nil {
		t.Errorf("Delay with nil signal = %v", err)
	}
}

func TestDelayCompletes(t *testing.T) {
	start := time.Now()
	if err := Delay(40*time.Millisecond, NewSignal(nil)); err != nil {
		t.Fatalf("Delay returned %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Delay returned after %v, want >= 40ms", elapsed)
	}
}

func TestDelayCancelledPromptly(t *testing.T) {
	sig := NewSignal(nil)
	go func() {
		time.Sleep(20 * time.Millisecond)
		sig.Cancel()
	}()

	start := time.Now()
	err := Delay(5*time.Second, sig)
	if !errors.Is(err, failure.ErrCancelled) {
		t.Fatalf("Delay error = %v, want ErrCancelled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
}

func TestDelayObservesExternalPoll(t *testing.T) {
	var external atomic.Bool
	sig := NewSignal(external.Load)
	go func() {
		time.Sleep(30 * time.Millisecond)
		external.Store(true)
	}()

	start := time.Now()
	err := Delay(5*time.Second, sig)
	if !errors.Is(err, failure.ErrCancelled) {
		t.Fatalf("Delay error = %v, want ErrCancelled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("external cancellation took %v", elapsed)
	}
}

func TestDelayAlreadyCancelled(t *testing.T) {
	sig := NewSignal(nil)
	sig.Cancel()
	if err := Delay(0, sig); !errors.Is(err, failure.ErrCancelled) {
		t.Errorf("Delay on cancelled signal = %v, want ErrCancelled", err)
	}
}

func TestWithTimeoutResult(t *testing.T) {
	got, err := WithTimeout(NewSignal(nil), time.Second, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Errorf("WithTimeout = (%q, %v), want (ok, nil)", got, err)
	}

	boom := errors.New("boom")
	_, err = WithTimeout(NewSignal(nil), time.Second, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("WithTimeout error = %v, want boom", err)
	}
}

func TestWithTimeoutExpires(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := WithTimeout(NewSignal(nil), 30*time.Millisecond, func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	if !errors.Is(err, failure.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestWithTimeoutCancelled(t *testing.T) {
	sig := NewSignal(nil)
	release := make(chan struct{})
	defer close(release)

	go func() {
		time.Sleep(20 * time.Millisecond)
		sig.Cancel()
	}()

	_, err := WithTimeout(sig, 5*time.Second, func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	if !errors.Is(err, failure.ErrCancelled) {
		t.Fatalf("error = %v, want ErrCancelled", err)
	}
}

func TestWithTimeoutLoserKeepsRunning(t *testing.T) {
	finished := make(chan struct{})
	_, err := WithTimeout(NewSignal(nil), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return 1, nil
	})
	if !errors.Is(err, failure.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Error("operation should run to completion in the background")
	}
}

func TestWithTimeoutNoLimit(t *testing.T) {
	got, err := WithTimeout(NewSignal(nil), 0, func(ctx context.Context) (int, error) {
		time.Sleep(10 * time.Millisecond)
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Errorf("WithTimeout = (%d, %v), want (7, nil)", got, err)
	}
}
