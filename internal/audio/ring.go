package audio

import (
	"sync"
	"sync/atomic"
)

// Ring is a fixed-capacity circular buffer for recorded audio samples.
//
// The write side (Push) belongs exclusively to the real-time audio thread:
// it never blocks and never allocates. When the buffer is full the oldest
// samples are overwritten. Snapshot may be called from any thread and
// always returns a fresh owned copy, never a live view.
//
// Each Start bumps a generation counter. Snapshots are tagged with the
// generation at copy time so consumers can detect and discard snapshots
// taken across a recording restart.
type Ring struct {
	mu         sync.Mutex
	samples    []float32
	head       int // Next write position
	count      int // Number of valid samples (up to capacity)
	generation uint64

	dropped atomic.Uint64
}

// NewRing creates a ring buffer with the given capacity in samples.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}

	return &Ring{
		samples: make([]float32, capacity),
	}
}

// Start resets the write cursor and bumps the generation counter,
// invalidating outstanding snapshots.
func (r *Ring) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.head = 0
	r.count = 0
	r.generation++
}

// Push writes samples from the real-time thread, wrapping and overwriting
// on overflow. It must not wait: if a reader holds the lock (a snapshot
// copy in progress), the block is dropped and counted instead of blocking
// the audio callback.
func (r *Ring) Push(samples []float32) {
	if len(samples) == 0 {
		return
	}

	if !r.mu.TryLock() {
		r.dropped.Add(1)

		return
	}
	defer r.mu.Unlock()

	capacity := len(r.samples)

	for _, sample := range samples {
		r.samples[r.head] = sample
		r.head = (r.head + 1) % capacity

		if r.count < capacity {
			r.count++
		}
	}
}

// Snapshot copies the recorded samples in chronological order into a fresh
// buffer, tagged with the generation counter at copy time. An empty buffer
// yields nil samples; that means "no audio conditioning", not an error.
func (r *Ring) Snapshot() ([]float32, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil, r.generation
	}

	out := make([]float32, r.count)
	capacity := len(r.samples)

	// head points at the next write position, so the oldest valid sample
	// sits count positions behind it.
	start := (r.head - r.count + capacity) % capacity
	for i := 0; i < r.count; i++ {
		out[i] = r.samples[(start+i)%capacity]
	}

	return out, r.generation
}

// Generation returns the current restart counter.
func (r *Ring) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.generation
}

// Count returns the number of valid samples in the buffer.
func (r *Ring) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.count
}

// Capacity returns the fixed capacity in samples.
func (r *Ring) Capacity() int {
	return len(r.samples)
}

// DroppedBlocks returns how many Push calls were discarded because a
// snapshot copy held the lock.
func (r *Ring) DroppedBlocks() uint64 {
	return r.dropped.Load()
}
