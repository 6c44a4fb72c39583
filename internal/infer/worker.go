package infer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soundloom/soundloom/internal/gen"
)

// Worker owns the background inference task. Exactly one generation runs
// at a time, enforced by the handle's in-flight exclusivity: a request only
// reaches the worker after TrySubmit admitted it.
type Worker struct {
	handle *gen.Handle
	engine Engine
	log    *slog.Logger

	// Capacity 1 is enough: the handle rejects a second submit while one
	// request is in flight, so there is never more than one outstanding.
	submitC chan gen.Request
}

// NewWorker creates a worker over the shared handle and an engine.
func NewWorker(handle *gen.Handle, engine Engine, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		handle:  handle,
		engine:  engine,
		log:     log,
		submitC: make(chan gen.Request, 1),
	}
}

// Generate submits a new request through the handle and hands it to the
// worker goroutine. It fails with the handle's admission errors (busy,
// empty prompt) without touching the worker.
func (w *Worker) Generate(prompt string, withConditioning bool) (gen.Request, error) {
	req, err := w.handle.TrySubmit(prompt, withConditioning)
	if err != nil {
		return gen.Request{}, err
	}

	select {
	case w.submitC <- req:
	default:
		// Cannot happen while the exclusivity invariant holds; recover by
		// failing the request instead of blocking the caller.
		w.handle.Complete(req.ID, nil, errors.New("worker queue full"))

		return gen.Request{}, fmt.Errorf("worker queue full")
	}

	return req, nil
}

// Run processes submitted requests until the context is cancelled.
// It is meant to run on its own goroutine.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.submitC:
			w.process(ctx, req)
		}
	}
}

func (w *Worker) process(ctx context.Context, req gen.Request) {
	if !w.handle.Begin(req.ID) {
		// Cancelled before pickup; nothing to do.
		w.log.Debug("request gone before pickup", "id", req.ID)

		return
	}

	w.log.Info("inference started",
		"id", req.ID,
		"engine", w.engine.Name(),
		"conditioned", req.Conditioning != nil)

	progress := func(p float64) error {
		if w.handle.CancelRequested(req.ID) {
			return ErrCancelled
		}

		w.handle.UpdateProgress(req.ID, p)

		return nil
	}

	result, err := w.engine.Generate(ctx, req, progress)
	if err != nil && !errors.Is(err, ErrCancelled) {
		w.log.Warn("inference failed", "id", req.ID, "error", err)
	}

	// The handle discards this when the request was cancelled or
	// superseded in the meantime.
	w.handle.Complete(req.ID, result, err)
}
