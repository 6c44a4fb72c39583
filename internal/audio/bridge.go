package audio

import (
	"sync/atomic"

	"github.com/soundloom/soundloom/internal/gen"
)

// Bridge is the real-time-safe adapter invoked once per audio block.
//
// It records input into the ring while the recording phase is active,
// reads the generation state without blocking, plays back a finished
// result when the UI has armed playback, and passes input through
// otherwise. ProcessBlock completes in bounded time regardless of what
// the inference thread is doing: all its reads are try-lock with a cached
// fallback, and a failed ring push drops the block rather than waiting.
type Bridge struct {
	handle *gen.Handle
	ring   *Ring

	playing atomic.Bool

	// Playback cursor state, touched only on the audio thread.
	playPos    int
	playingReq uint64
}

// NewBridge creates a bridge over the shared handle and recording ring.
func NewBridge(handle *gen.Handle, ring *Ring) *Bridge {
	return &Bridge{
		handle: handle,
		ring:   ring,
	}
}

// SetPlayback arms or disarms playback of the generated result. Called by
// the UI; the audio thread observes the flag on its next block.
func (b *Bridge) SetPlayback(on bool) {
	b.playing.Store(on)
}

// Playing reports whether result playback is currently armed.
func (b *Bridge) Playing() bool {
	return b.playing.Load()
}

// ProcessBlock handles one real-time block. in and out must be the same
// length; any resampling or length adaptation of generated audio happens
// outside the bridge.
func (b *Bridge) ProcessBlock(in, out []float32) {
	st := b.handle.TryReadState()

	if st.Phase == gen.PhaseRecording {
		b.ring.Push(in)
	}

	if st.Phase == gen.PhaseSucceeded && st.Result != nil && b.playing.Load() {
		b.playResult(st, in, out)

		return
	}

	copy(out, in)
}

// playResult copies generated samples into the output block, falling back
// to pass-through for the tail once the result is exhausted. Results are
// discarded by id, so a stale cursor from a previous request never reads
// into a new result mid-buffer.
func (b *Bridge) playResult(st gen.Snapshot, in, out []float32) {
	if st.RequestID != b.playingReq {
		b.playingReq = st.RequestID
		b.playPos = 0
	}

	n := copy(out, st.Result.Samples[b.playPos:])
	b.playPos += n

	for i := n; i < len(out); i++ {
		out[i] = in[i]
	}

	if b.playPos >= len(st.Result.Samples) {
		b.playPos = 0
		b.playing.Store(false)
	}
}
