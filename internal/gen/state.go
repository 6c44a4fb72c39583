package gen

// Phase is the lifecycle phase of the current generation request.
//
// Exactly one phase is current at any instant. Transitions are applied
// atomically by Handle; readers never observe a half-applied transition.
type Phase int

const (
	// PhaseIdle means no request is in flight and nothing is recording.
	PhaseIdle Phase = iota
	// PhaseRecording means the audio thread is writing input into the ring.
	PhaseRecording
	// PhaseQueued means a request was submitted but no worker picked it up yet.
	PhaseQueued
	// PhaseRunning means the inference worker is generating audio.
	PhaseRunning
	// PhaseSucceeded means generation finished and a result is available.
	PhaseSucceeded
	// PhaseFailed means generation finished with an error.
	PhaseFailed
	// PhaseCancelled means the request was cancelled before completing.
	PhaseCancelled
)

// String returns the lowercase phase name used in logs and API responses.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRecording:
		return "recording"
	case PhaseQueued:
		return "queued"
	case PhaseRunning:
		return "running"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// InFlight reports whether a request is currently queued or running.
// At most one request is in flight at a time; submits are rejected until
// the in-flight request reaches a terminal phase and is acknowledged.
func (p Phase) InFlight() bool {
	return p == PhaseQueued || p == PhaseRunning
}

// Terminal reports whether the phase is a final outcome that must be
// acknowledged before a new request can be submitted.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed || p == PhaseCancelled
}
