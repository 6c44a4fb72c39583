package audio_test

import (
	"testing"

	"github.com/soundloom/soundloom/internal/audio"
	"github.com/soundloom/soundloom/internal/gen"
	"github.com/stretchr/testify/require"
)

func newTestBridge(t *testing.T) (*audio.Bridge, *gen.Handle, *audio.Ring) {
	t.Helper()

	ring := audio.NewRing(64)
	handle := gen.NewHandle(ring, nil)

	return audio.NewBridge(handle, ring), handle, ring
}

func processOne(bridge *audio.Bridge, in []float32) []float32 {
	out := make([]float32, len(in))
	bridge.ProcessBlock(in, out)

	return out
}

func TestBridge_PassThroughWhenIdle(t *testing.T) {
	t.Parallel()

	bridge, _, ring := newTestBridge(t)

	in := []float32{0.1, 0.2, 0.3, 0.4}
	out := processOne(bridge, in)

	require.Equal(t, in, out)
	require.Zero(t, ring.Count())
}

func TestBridge_RecordsWhileRecording(t *testing.T) {
	t.Parallel()

	bridge, handle, ring := newTestBridge(t)

	require.NoError(t, handle.StartRecording())

	in := []float32{0.5, -0.5}
	out := processOne(bridge, in)

	// Recording still passes input through unmodified.
	require.Equal(t, in, out)

	samples, _ := ring.Snapshot()
	require.Equal(t, in, samples)
}

func TestBridge_PassThroughWhileGenerating(t *testing.T) {
	t.Parallel()

	bridge, handle, _ := newTestBridge(t)

	req, err := handle.TrySubmit("a riser", false)
	require.NoError(t, err)

	in := []float32{0.25, 0.25}
	require.Equal(t, in, processOne(bridge, in))

	require.True(t, handle.Begin(req.ID))
	handle.UpdateProgress(req.ID, 0.5)
	require.Equal(t, in, processOne(bridge, in))
}

func TestBridge_SucceededWithoutArmIsPassThrough(t *testing.T) {
	t.Parallel()

	bridge, handle, _ := newTestBridge(t)

	req, err := handle.TrySubmit("quiet", false)
	require.NoError(t, err)
	require.True(t, handle.Begin(req.ID))
	handle.Complete(req.ID, &gen.Result{Samples: []float32{1, 1, 1, 1}, SampleRate: 32000}, nil)

	in := []float32{0.1, 0.2}
	require.Equal(t, in, processOne(bridge, in))
	require.False(t, bridge.Playing())
}

func TestBridge_PlaybackCopiesResultThenDisarms(t *testing.T) {
	t.Parallel()

	bridge, handle, _ := newTestBridge(t)

	req, err := handle.TrySubmit("play me", false)
	require.NoError(t, err)
	require.True(t, handle.Begin(req.ID))

	result := &gen.Result{Samples: []float32{0.9, 0.8, 0.7, 0.6, 0.5}, SampleRate: 32000}
	handle.Complete(req.ID, result, nil)

	bridge.SetPlayback(true)

	in := []float32{0, 0}
	require.Equal(t, []float32{0.9, 0.8}, processOne(bridge, in))
	require.Equal(t, []float32{0.7, 0.6}, processOne(bridge, in))

	// Last block: one generated sample left, tail falls back to input.
	in = []float32{0.1, 0.2}
	require.Equal(t, []float32{0.5, 0.2}, processOne(bridge, in))

	// Exhausted: playback disarms and we are back to pass-through.
	require.False(t, bridge.Playing())
	require.Equal(t, in, processOne(bridge, in))
}

func TestBridge_NewRequestResetsPlaybackCursor(t *testing.T) {
	t.Parallel()

	bridge, handle, _ := newTestBridge(t)

	run := func(prompt string, samples []float32) {
		req, err := handle.TrySubmit(prompt, false)
		require.NoError(t, err)
		require.True(t, handle.Begin(req.ID))
		handle.Complete(req.ID, &gen.Result{Samples: samples, SampleRate: 32000}, nil)
	}

	run("first", []float32{0.1, 0.2, 0.3, 0.4})
	bridge.SetPlayback(true)
	processOne(bridge, make([]float32, 2)) // cursor now mid-result

	require.NoError(t, handle.Acknowledge())
	run("second", []float32{0.5, 0.6})
	bridge.SetPlayback(true)

	// Playback of the new result starts from the beginning.
	require.Equal(t, []float32{0.5, 0.6}, processOne(bridge, make([]float32, 2)))
}
