// Package infer runs generation requests on an opaque inference engine,
// off the real-time audio thread.
package infer

import (
	"context"
	"errors"

	"github.com/soundloom/soundloom/internal/gen"
)

// ErrCancelled aborts inference when the request was cancelled. It is a
// terminal outcome, not an error surfaced to the user.
var ErrCancelled = errors.New("generation cancelled")

// ProgressFunc reports inference progress in [0, 1]. Engines must call it
// between inference steps and abort with the returned error when it is
// non-nil; that is how cooperative cancellation reaches the engine.
type ProgressFunc func(p float64) error

// Engine produces a waveform for a generation request. Implementations may
// block, allocate, and run for minutes; they are never called from the
// real-time thread. Errors are opaque reasons surfaced through the failed
// generation state.
type Engine interface {
	// Name identifies the engine in logs and configuration.
	Name() string

	// Generate synthesizes audio for the request, reporting progress
	// periodically. The request's conditioning snapshot, when present, is
	// an owned copy; the live recording buffer is never touched here.
	Generate(ctx context.Context, req gen.Request, progress ProgressFunc) (*gen.Result, error)
}
