package failure

import (
	"context"
	"net"
	"net/url"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindNone},
		{name: "cancelled sentinel", err: ErrCancelled, want: KindCancelled},
		{name: "wrapped cancelled", err: errors.Wrap(ErrCancelled, "fetch"), want: KindCancelled},
		{name: "context canceled", err: context.Canceled, want: KindCancelled},
		{name: "timeout sentinel", err: ErrTimeout, want: KindTimeout},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: KindTimeout},
		{name: "marked network", err: Mark(errors.New("connection reset"), ErrNetwork), want: KindNetwork},
		{name: "marked api", err: Mark(errors.New("HTTP 502"), ErrAPI), want: KindAPI},
		{name: "wrapped marked api", err: errors.Wrap(Mark(errors.New("HTTP 404"), ErrAPI), "lookup"), want: KindAPI},
		{name: "preview generation", err: errors.Wrap(ErrPreviewGeneration, "all media failed"), want: KindPreviewGeneration},
		{name: "invalid input", err: ErrInvalidInput, want: KindInvalidInput},
		{name: "url error", err: &url.Error{Op: "Get", URL: "http://x", Err: errors.New("refused")}, want: KindNetwork},
		{name: "net op error", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, want: KindNetwork},
		{name: "plain error", err: errors.New("boom"), want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestMarkKeepsMessage(t *testing.T) {
	err := Mark(errors.New("HTTP 503 Service Unavailable"), ErrAPI)
	if err.Error() != "HTTP 503 Service Unavailable" {
		t.Errorf("Mark changed message: %q", err.Error())
	}
	if !errors.Is(err, ErrAPI) {
		t.Error("marked error should match ErrAPI")
	}
	if Mark(nil, ErrAPI) != nil {
		t.Error("Mark(nil) should return nil")
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(errors.Wrap(ErrCancelled, "delay")) {
		t.Error("wrapped ErrCancelled should be cancelled")
	}
	if IsCancelled(ErrTimeout) {
		t.Error("ErrTimeout should not be cancelled")
	}
}
