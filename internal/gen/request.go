package gen

import "time"

// Request is an immutable generation request. IDs increase monotonically
// per Handle so stale results can be discarded by id comparison.
type Request struct {
	ID           uint64
	Prompt       string
	Conditioning *Conditioning
}

// Conditioning is an owned copy of recorded audio taken when the request
// was submitted. Generation is the recorder's restart counter at copy time;
// consumers must ignore conditioning whose generation no longer matches the
// recorder (the recording was restarted after the copy).
type Conditioning struct {
	Samples    []float32
	Generation uint64
}

// Result is the finished waveform produced by an inference engine.
// Once published through Handle.Complete it is immutable; all consumers
// (UI, audio bridge, export) share the same buffer and must not write to it.
type Result struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the playing time of the result.
func (r *Result) Duration() time.Duration {
	if r == nil || r.SampleRate <= 0 {
		return 0
	}

	return time.Duration(float64(len(r.Samples)) / float64(r.SampleRate) * float64(time.Second))
}
