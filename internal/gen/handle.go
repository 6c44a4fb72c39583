// Package gen holds the generation lifecycle shared between the real-time
// audio thread, the inference worker, and polling front-ends.
package gen

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Sentinel errors returned by Handle operations.
var (
	// ErrBusy is returned by TrySubmit while a request is queued, running,
	// or finished but not yet acknowledged. The caller must cancel or
	// acknowledge first; requests are never queued silently.
	ErrBusy = errors.New("generation already in progress")

	// ErrEmptyPrompt is returned by TrySubmit for a prompt that is empty
	// after trimming.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrNotRecording is returned by StopRecording outside of the
	// recording phase.
	ErrNotRecording = errors.New("not recording")

	// ErrNotIdle is returned by StartRecording outside of the idle phase.
	ErrNotIdle = errors.New("not idle")

	// ErrNotTerminal is returned by Acknowledge when there is no finished
	// outcome to acknowledge.
	ErrNotTerminal = errors.New("no finished generation to acknowledge")
)

// Recorder is the recording buffer the Handle arbitrates. The write side
// belongs to the audio thread; Snapshot returns an owned copy tagged with
// the recorder's restart generation.
type Recorder interface {
	// Start resets the buffer and invalidates outstanding snapshots.
	Start()
	// Snapshot copies the currently recorded samples. It returns nil
	// samples when nothing has been recorded.
	Snapshot() (samples []float32, generation uint64)
}

// Snapshot is a consistent read-only view of the generation state.
// Result, when non-nil, points at the shared immutable result buffer.
type Snapshot struct {
	Phase              Phase
	RequestID          uint64
	Prompt             string
	Progress           float64
	RecordingStartedAt time.Time
	Result             *Result
	FailReason         string
}

// Handle is the single writer-arbitration point for cross-thread state.
//
// All mutations go through one short-held mutex. Every mutation also
// publishes a fresh Snapshot to an atomic cell, so the real-time audio
// thread can read the last-known-good snapshot without ever waiting on the
// inference or UI threads (TryReadState). The snapshot it gets is then at
// most one mutation stale.
//
// A Handle is created once at process start and lives for the process's
// lifetime; the state value is mutated in place, never replaced.
type Handle struct {
	recorder Recorder
	log      *slog.Logger

	mu                 sync.Mutex
	phase              Phase
	req                Request
	nextID             uint64
	progress           float64
	recordingStartedAt time.Time
	result             *Result
	failReason         string
	cancelPending      bool

	cached atomic.Pointer[Snapshot]
}

// NewHandle creates a Handle arbitrating the given recorder.
func NewHandle(recorder Recorder, log *slog.Logger) *Handle {
	if log == nil {
		log = slog.Default()
	}

	h := &Handle{
		recorder: recorder,
		log:      log,
		phase:    PhaseIdle,
	}
	h.cached.Store(&Snapshot{Phase: PhaseIdle})

	return h
}

// StartRecording arms the recorder and enters the recording phase.
// Only valid while idle.
func (h *Handle) StartRecording() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.phase != PhaseIdle {
		return ErrNotIdle
	}

	h.recorder.Start()
	h.phase = PhaseRecording
	h.recordingStartedAt = time.Now()
	h.publishLocked()

	h.log.Debug("recording started")

	return nil
}

// StopRecording disarms the recorder and returns to idle. The recorded
// samples stay in the ring and can still be used as conditioning.
func (h *Handle) StopRecording() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.phase != PhaseRecording {
		return ErrNotRecording
	}

	h.phase = PhaseIdle
	h.recordingStartedAt = time.Time{}
	h.publishLocked()

	h.log.Debug("recording stopped")

	return nil
}

// TrySubmit validates and admits a new generation request.
//
// It succeeds only from the idle or recording phase; while a request is in
// flight (or finished but unacknowledged) it fails with ErrBusy. Submitting
// while recording implicitly stops the recording; when withConditioning is
// set, the recorded audio is copied in the same critical section as the
// transition so no samples can slip in between. An empty recorder simply
// means no audio conditioning, not an error.
func (h *Handle) TrySubmit(prompt string, withConditioning bool) (Request, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Request{}, ErrEmptyPrompt
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.phase != PhaseIdle && h.phase != PhaseRecording {
		return Request{}, ErrBusy
	}

	var cond *Conditioning

	if withConditioning {
		samples, generation := h.recorder.Snapshot()
		if len(samples) > 0 {
			cond = &Conditioning{Samples: samples, Generation: generation}
		}
	}

	h.nextID++
	h.req = Request{
		ID:           h.nextID,
		Prompt:       prompt,
		Conditioning: cond,
	}
	h.phase = PhaseQueued
	h.progress = 0
	h.result = nil
	h.failReason = ""
	h.cancelPending = false
	h.recordingStartedAt = time.Time{}
	h.publishLocked()

	h.log.Info("generation request submitted",
		"id", h.req.ID,
		"prompt", prompt,
		"conditioned", cond != nil)

	return h.req, nil
}

// Begin marks the request as picked up by the inference worker
// (queued -> running). It reports false when the request was cancelled or
// superseded before pickup, in which case the worker must not run it.
func (h *Handle) Begin(id uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.phase != PhaseQueued || h.req.ID != id {
		h.log.Debug("worker pickup ignored", "id", id, "phase", h.phase.String())

		return false
	}

	h.phase = PhaseRunning
	h.progress = 0
	h.publishLocked()

	return true
}

// UpdateProgress records inference progress for the running request.
// Updates outside the running phase or with a stale id are logged and
// dropped; they are an inconsistency, not a fatal condition.
func (h *Handle) UpdateProgress(id uint64, p float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.phase != PhaseRunning || h.req.ID != id {
		h.log.Debug("progress update ignored", "id", id, "phase", h.phase.String())

		return
	}

	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}

	h.progress = p
	h.publishLocked()
}

// Complete publishes the terminal outcome of the running request.
//
// A nil err moves the state to succeeded and stores the result; a non-nil
// err moves it to failed. Calls with a stale id, or after cancellation
// already moved the state to a terminal phase, are no-ops: the stale result
// is silently discarded and the current state stays untouched. This is what
// resolves a cancel/complete race in favor of cancellation.
func (h *Handle) Complete(id uint64, result *Result, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.phase != PhaseRunning || h.req.ID != id {
		h.log.Debug("stale result discarded", "id", id, "phase", h.phase.String())

		return
	}

	if err != nil {
		h.phase = PhaseFailed
		h.failReason = err.Error()
		h.result = nil
		h.publishLocked()

		h.log.Warn("generation failed", "id", id, "reason", h.failReason)

		return
	}

	h.phase = PhaseSucceeded
	h.result = result
	h.progress = 1
	h.publishLocked()

	h.log.Info("generation succeeded",
		"id", id,
		"samples", len(result.Samples),
		"sample_rate", result.SampleRate)
}

// Cancel cancels the in-flight request. It reports whether anything was
// cancelled. The transition to cancelled happens immediately; the worker
// observes the latched cancel flag at its next progress check and aborts,
// and its late Complete call is discarded as stale.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.phase.InFlight() {
		return false
	}

	h.phase = PhaseCancelled
	h.cancelPending = true
	h.result = nil
	h.publishLocked()

	h.log.Info("generation cancelled", "id", h.req.ID)

	return true
}

// CancelRequested reports whether the given request has been cancelled.
// The inference worker polls this between inference steps.
func (h *Handle) CancelRequested(id uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.cancelPending && h.req.ID == id
}

// Acknowledge consumes a terminal outcome and returns the state to idle.
func (h *Handle) Acknowledge() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.phase.Terminal() {
		return ErrNotTerminal
	}

	h.phase = PhaseIdle
	h.progress = 0
	h.result = nil
	h.failReason = ""
	h.cancelPending = false
	h.publishLocked()

	return nil
}

// ReadState returns a consistent snapshot of the current state. It takes
// the handle lock for the duration of a struct copy; intended for the UI
// and worker threads, which may block briefly.
func (h *Handle) ReadState() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.snapshotLocked()
}

// TryReadState returns a snapshot without ever blocking. Under lock
// contention it falls back to the last published snapshot, which is at
// most one mutation stale. Safe to call from the real-time audio thread.
func (h *Handle) TryReadState() Snapshot {
	if h.mu.TryLock() {
		s := h.snapshotLocked()
		h.mu.Unlock()

		return s
	}

	return *h.cached.Load()
}

func (h *Handle) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:              h.phase,
		RequestID:          h.req.ID,
		Prompt:             h.req.Prompt,
		Progress:           h.progress,
		RecordingStartedAt: h.recordingStartedAt,
		Result:             h.result,
		FailReason:         h.failReason,
	}
}

func (h *Handle) publishLocked() {
	s := h.snapshotLocked()
	h.cached.Store(&s)
}
