package tui_test

import (
	"io"
	"log/slog"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundloom/soundloom/internal/audio"
	"github.com/soundloom/soundloom/internal/gen"
	"github.com/soundloom/soundloom/internal/infer"
	"github.com/soundloom/soundloom/internal/tui"
)

func init() {
	// Force consistent rendering in tests regardless of terminal
	lipgloss.SetColorProfile(termenv.Ascii)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestModel wires a full stack without running the worker goroutine,
// so submitted requests stay queued and every transition is driven by
// the test.
func newTestModel(t *testing.T) (tui.Model, *gen.Handle, *audio.Bridge) {
	t.Helper()

	ring := audio.NewRing(256)
	handle := gen.NewHandle(ring, discardLogger())
	engine := infer.NewSynth(infer.SynthConfig{SampleRate: 8000, Seconds: 1, Steps: 4})
	worker := infer.NewWorker(handle, engine, discardLogger())
	bridge := audio.NewBridge(handle, ring)

	return tui.New(handle, worker, tui.PlaybackKnob{Bridge: bridge}, tui.RingLevels{Ring: ring}), handle, bridge
}

func update(t *testing.T, m tui.Model, msg tea.Msg) tui.Model {
	t.Helper()

	next, _ := m.Update(msg)
	model, ok := next.(tui.Model)
	require.True(t, ok)

	return model
}

func keyMsg(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runeMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestIdleViewShowsPromptAndHelp(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)

	view := m.View()
	assert.Contains(t, view, "soundloom")
	assert.Contains(t, view, "describe the sound to generate")
	assert.Contains(t, view, "generate")
	assert.Contains(t, view, "start/stop recording")
}

func TestTypingFillsPrompt(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)

	m = update(t, m, runeMsg("warm pad"))

	assert.Contains(t, m.View(), "warm pad")
}

func TestRecordKeyTogglesRecording(t *testing.T) {
	t.Parallel()

	m, handle, _ := newTestModel(t)

	m = update(t, m, keyMsg(tea.KeyCtrlR))
	assert.Equal(t, gen.PhaseRecording, handle.ReadState().Phase)
	assert.Contains(t, m.View(), "Recording")

	m = update(t, m, keyMsg(tea.KeyCtrlR))
	assert.Equal(t, gen.PhaseIdle, handle.ReadState().Phase)
	assert.NotContains(t, m.View(), "Recording")
}

func TestSubmitEmptyPromptShowsError(t *testing.T) {
	t.Parallel()

	m, handle, _ := newTestModel(t)

	m = update(t, m, keyMsg(tea.KeyEnter))

	assert.Equal(t, gen.PhaseIdle, handle.ReadState().Phase)
	assert.Contains(t, m.View(), gen.ErrEmptyPrompt.Error())
}

func TestSubmitQueuesRequest(t *testing.T) {
	t.Parallel()

	m, handle, _ := newTestModel(t)

	m = update(t, m, runeMsg("rain on a tin roof"))
	m = update(t, m, keyMsg(tea.KeyEnter))

	assert.Equal(t, gen.PhaseQueued, handle.ReadState().Phase)
	assert.Contains(t, m.View(), "Queued")
	assert.Contains(t, m.View(), "rain on a tin roof")
}

func TestCancelKeyWhileQueued(t *testing.T) {
	t.Parallel()

	m, handle, _ := newTestModel(t)

	m = update(t, m, runeMsg("drone"))
	m = update(t, m, keyMsg(tea.KeyEnter))
	m = update(t, m, runeMsg("c"))

	assert.Equal(t, gen.PhaseCancelled, handle.ReadState().Phase)
	assert.Contains(t, m.View(), "cancelled")
}

func TestAcknowledgeReturnsToIdle(t *testing.T) {
	t.Parallel()

	m, handle, _ := newTestModel(t)

	m = update(t, m, runeMsg("drone"))
	m = update(t, m, keyMsg(tea.KeyEnter))
	m = update(t, m, runeMsg("c"))
	m = update(t, m, runeMsg("a"))

	assert.Equal(t, gen.PhaseIdle, handle.ReadState().Phase)
	assert.Contains(t, m.View(), "describe the sound to generate")
}

func TestSucceededViewAndPlaybackToggle(t *testing.T) {
	t.Parallel()

	m, handle, bridge := newTestModel(t)

	req, err := handle.TrySubmit("bells", false)
	require.NoError(t, err)
	require.True(t, handle.Begin(req.ID))
	handle.Complete(req.ID, &gen.Result{
		Samples:    make([]float32, 16000),
		SampleRate: 8000,
	}, nil)

	m = update(t, m, tui.PollMsg{})
	view := m.View()
	assert.Contains(t, view, "Generation complete")
	assert.Contains(t, view, "2.0s at 8000 Hz")

	m = update(t, m, runeMsg("p"))
	assert.True(t, bridge.Playing())
	assert.Contains(t, m.View(), "Playing")

	m = update(t, m, runeMsg("p"))
	assert.False(t, bridge.Playing())
}

func TestFailedViewShowsReason(t *testing.T) {
	t.Parallel()

	m, handle, _ := newTestModel(t)

	req, err := handle.TrySubmit("bells", false)
	require.NoError(t, err)
	require.True(t, handle.Begin(req.ID))
	handle.Complete(req.ID, nil, assert.AnError)

	m = update(t, m, tui.PollMsg{})

	assert.Contains(t, m.View(), "Generation failed")
	assert.Contains(t, m.View(), assert.AnError.Error())
}

func TestForceQuitAlwaysQuits(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestModel(t)

	next, cmd := m.Update(keyMsg(tea.KeyCtrlC))
	require.NotNil(t, cmd)

	model, ok := next.(tui.Model)
	require.True(t, ok)
	assert.Empty(t, model.View())
}
