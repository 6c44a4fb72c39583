// Package tui implements the terminal front-end for the generation
// lifecycle. It polls the shared handle on a timer and renders whatever
// phase the engine is in; all mutations go through the handle, so the UI
// never races the worker or the audio callback.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/soundloom/soundloom/internal/gen"
	"github.com/soundloom/soundloom/internal/infer"
	"github.com/soundloom/soundloom/internal/tui/components/waveform"
	"github.com/soundloom/soundloom/internal/tui/style"
	"github.com/soundloom/soundloom/pkg/uictl"
)

// pollInterval is how often the UI re-reads the shared state. The worker
// publishes progress far more often; 10 Hz is plenty for a terminal.
const pollInterval = 100 * time.Millisecond

// PollMsg triggers a state re-read and redraw.
type PollMsg struct{}

// Model is the single top-level bubbletea model.
type Model struct {
	handle *gen.Handle
	worker *infer.Worker
	play   uictl.Knob

	keys  KeyMap
	input textinput.Model
	spin  spinner.Model
	prog  progress.Model
	wave  waveform.Model

	state            gen.Snapshot
	withConditioning bool
	status           string
	quitting         bool
}

// New creates the generation UI. play arms result playback on the audio
// bridge; levels feeds the waveform, normally from the recording ring so
// the user sees what the conditioning snapshot will contain.
func New(handle *gen.Handle, worker *infer.Worker, play uictl.Knob, levels uictl.Levels[float32]) Model {
	in := textinput.New()
	in.Placeholder = "describe the sound to generate..."
	in.CharLimit = 200
	in.Width = 48
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points

	pr := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
	)

	return Model{
		handle: handle,
		worker: worker,
		play:   play,
		keys:   DefaultKeyMap(),
		input:  in,
		spin:   sp,
		prog:   pr,
		wave:   waveform.New(levels, 48, 2),
		state:  handle.ReadState(),
	}
}

// Init returns the initial commands: cursor blink, spinner, and the poll
// timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spin.Tick,
		pollCmd(),
	)
}

func pollCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(_ time.Time) tea.Msg {
		return PollMsg{}
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PollMsg:
		m.refresh()

		return m, pollCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)

		return m, cmd

	case progress.FrameMsg:
		progModel, cmd := m.prog.Update(msg)
		m.prog = progModel.(progress.Model)

		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// refresh re-reads the shared state and moves input focus to match the
// phase: the prompt is editable while idle or recording, blurred once a
// request is in flight.
func (m *Model) refresh() {
	m.state = m.handle.ReadState()

	editing := m.state.Phase == gen.PhaseIdle || m.state.Phase == gen.PhaseRecording
	if editing && !m.input.Focused() {
		m.input.Focus()
	} else if !editing && m.input.Focused() {
		m.input.Blur()
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		m.quitting = true

		return m, tea.Quit
	}

	switch m.state.Phase {
	case gen.PhaseIdle, gen.PhaseRecording:
		return m.handleEditingKey(msg)

	case gen.PhaseQueued, gen.PhaseRunning:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			if m.handle.Cancel() {
				m.status = ""
			}
			m.refresh()

		case key.Matches(msg, m.keys.Quit):
			m.quitting = true

			return m, tea.Quit
		}

	case gen.PhaseSucceeded, gen.PhaseFailed, gen.PhaseCancelled:
		return m.handleOutcomeKey(msg)
	}

	return m, nil
}

func (m Model) handleEditingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		if _, err := m.worker.Generate(m.input.Value(), m.withConditioning); err != nil {
			m.status = err.Error()
		} else {
			m.status = ""
		}
		m.refresh()

		return m, nil

	case key.Matches(msg, m.keys.Record):
		var err error
		if m.state.Phase == gen.PhaseRecording {
			err = m.handle.StopRecording()
		} else {
			err = m.handle.StartRecording()
		}

		if err != nil {
			m.status = err.Error()
		} else {
			m.status = ""
		}
		m.refresh()

		return m, nil

	case key.Matches(msg, m.keys.Conditioning):
		m.withConditioning = !m.withConditioning

		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m Model) handleOutcomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Play):
		if m.state.Phase == gen.PhaseSucceeded {
			m.play.Toggle()
		}

	case key.Matches(msg, m.keys.Acknowledge):
		m.play.Off()

		if err := m.handle.Acknowledge(); err != nil {
			m.status = err.Error()
		} else {
			m.status = ""
			m.input.Reset()
		}
		m.refresh()

	case key.Matches(msg, m.keys.Quit):
		m.quitting = true

		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI for the current phase.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(style.Title.Render("soundloom"))
	if m.withConditioning {
		sb.WriteString("  " + style.Subtitle.Render("conditioning: on"))
	}
	sb.WriteString("\n\n")

	switch m.state.Phase {
	case gen.PhaseIdle:
		m.viewIdle(&sb)
	case gen.PhaseRecording:
		m.viewRecording(&sb)
	case gen.PhaseQueued, gen.PhaseRunning:
		m.viewInFlight(&sb)
	case gen.PhaseSucceeded:
		m.viewSucceeded(&sb)
	case gen.PhaseFailed:
		sb.WriteString(style.Error.Render("Generation failed: "+m.state.FailReason) + "\n\n")
		sb.WriteString(helpLine(m.keys.Acknowledge, m.keys.Quit))
	case gen.PhaseCancelled:
		sb.WriteString(style.Warning.Render("Generation cancelled") + "\n\n")
		sb.WriteString(helpLine(m.keys.Acknowledge, m.keys.Quit))
	}

	if m.status != "" {
		sb.WriteString("\n\n" + style.Error.Render(m.status))
	}

	return sb.String()
}

func (m Model) viewIdle(sb *strings.Builder) {
	sb.WriteString(m.input.View() + "\n\n")
	sb.WriteString(m.wave.View() + "\n\n")
	sb.WriteString(helpLine(m.keys.Submit, m.keys.Record, m.keys.Conditioning, m.keys.ForceQuit))
}

func (m Model) viewRecording(sb *strings.Builder) {
	sb.WriteString(m.spin.View() + " ")
	sb.WriteString(style.Title.Render("Recording"))

	if !m.state.RecordingStartedAt.IsZero() {
		elapsed := time.Since(m.state.RecordingStartedAt).Round(time.Second)
		sb.WriteString(" " + style.Subtitle.Render(elapsed.String()))
	}
	sb.WriteString("\n\n")

	sb.WriteString(m.wave.View() + "\n\n")
	sb.WriteString(m.input.View() + "\n\n")
	sb.WriteString(helpLine(m.keys.Submit, m.keys.Record, m.keys.ForceQuit))
}

func (m Model) viewInFlight(sb *strings.Builder) {
	sb.WriteString(m.spin.View() + " ")

	if m.state.Phase == gen.PhaseQueued {
		sb.WriteString(style.Title.Render("Queued"))
	} else {
		sb.WriteString(style.Title.Render("Generating"))
	}
	sb.WriteString(" " + style.Subtitle.Render(m.state.Prompt) + "\n\n")

	sb.WriteString(m.prog.ViewAs(m.state.Progress) + "\n")
	sb.WriteString(style.Subtitle.Render(fmt.Sprintf("%d%%", int(m.state.Progress*100))))
	sb.WriteString("\n\n")
	sb.WriteString(helpLine(m.keys.Cancel, m.keys.Quit))
}

func (m Model) viewSucceeded(sb *strings.Builder) {
	sb.WriteString(style.Success.Render("Generation complete") + " ")
	sb.WriteString(style.Subtitle.Render(m.state.Prompt) + "\n\n")

	if m.state.Result != nil {
		sb.WriteString(style.Subtitle.Render(fmt.Sprintf("%.1fs at %d Hz",
			m.state.Result.Duration().Seconds(), m.state.Result.SampleRate)))
		sb.WriteString("\n\n")
	}

	if m.play.Read() {
		sb.WriteString(style.Progress.Render("Playing...") + "\n\n")
	}

	sb.WriteString(helpLine(m.keys.Play, m.keys.Acknowledge, m.keys.Quit))
}

// helpLine renders "[key] action" footer hints.
func helpLine(bindings ...key.Binding) string {
	var sb strings.Builder

	for i, b := range bindings {
		if i > 0 {
			sb.WriteString("  ")
		}

		h := b.Help()
		sb.WriteString(style.Help.Render("["))
		sb.WriteString(style.Key.Render(h.Key))
		sb.WriteString(style.Help.Render("] " + h.Desc))
	}

	return sb.String()
}
