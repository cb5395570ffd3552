// Package failure defines the error taxonomy shared by the preview pipeline and
// its collaborators.
//
// Collaborators tag their errors with one of the sentinel kinds using Mark so
// the pipeline can classify failures without knowing concrete error types:
//
//	return failure.Mark(err, failure.ErrNetwork)
//
// Classify maps any error to a Kind for reporting.
package failure

import (
	"context"
	"net"
	"net/url"

	"github.com/cockroachdb/errors"
)

// Kind identifies the class of a failure.
type Kind string

const (
	KindNone              Kind = ""
	KindCancelled         Kind = "cancelled"
	KindTimeout           Kind = "timeout"
	KindNetwork           Kind = "network"
	KindAPI               Kind = "api_error"
	KindPreviewGeneration Kind = "preview_generation"
	KindInvalidInput      Kind = "invalid_input"
	KindUnknown           Kind = "unknown"
)

// Sentinel errors. Compare with errors.Is; wrapped or marked errors match.
var (
	// ErrCancelled means the run was asked to stop. It is a terminal request, not a failure.
	ErrCancelled = errors.New("cancelled")
	// ErrTimeout means an operation exceeded its bounded wait.
	ErrTimeout = errors.New("timed out")
	// ErrNetwork is a transport-level failure talking to a collaborator.
	ErrNetwork = errors.New("network error")
	// ErrAPI is a non-2xx or malformed response from a collaborator.
	ErrAPI = errors.New("api error")
	// ErrPreviewGeneration means no preview could be produced from the media.
	ErrPreviewGeneration = errors.New("preview generation failed")
	// ErrInvalidInput is a request a collaborator refuses outright (e.g. empty media list).
	ErrInvalidInput = errors.New("invalid input")
)

// Mark tags err with the given sentinel so errors.Is(err, kind) holds, while
// keeping the original message and chain.
func Mark(err error, kind error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, kind)
}

// Classify returns the Kind of err. Sentinel marks take priority; untagged
// transport errors are recognised as network failures.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	switch {
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrPreviewGeneration):
		return KindPreviewGeneration
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrAPI):
		return KindAPI
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNetwork
	}

	return KindUnknown
}

// IsCancelled reports whether err represents a cancellation request.
func IsCancelled(err error) bool {
	return Classify(err) == KindCancelled
}
