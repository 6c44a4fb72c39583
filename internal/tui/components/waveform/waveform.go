// Package waveform provides a TUI component for visualizing audio amplitude.
package waveform

import (
	"math"
	"strings"

	"github.com/soundloom/soundloom/internal/tui/style"
	"github.com/soundloom/soundloom/pkg/uictl"
)

// Block characters for amplitude visualization (8 levels, bottom to top).
// Index 0 = empty (space), 1-8 = increasing fill levels.
const blockChars = " ▁▂▃▄▅▆▇█"

// Model renders normalized float32 samples as vertical bars showing
// amplitude over time (left=older, right=newer). It is a pure view: the
// parent model re-renders it on its own poll tick.
type Model struct {
	levels uictl.Levels[float32] // Data source for samples, in [-1, 1]
	width  int                   // Display width in characters
	height int                   // Display height in rows
}

// New creates a new waveform model. Samples are bucketed to fit the
// display width.
func New(levels uictl.Levels[float32], width, height int) Model {
	if height < 1 {
		height = 1
	}

	return Model{
		levels: levels,
		width:  width,
		height: height,
	}
}

// View renders the waveform as ASCII art.
func (m Model) View() string {
	if m.levels == nil {
		return m.renderEmpty()
	}

	samples := m.levels.Read()
	if len(samples) == 0 {
		return m.renderEmpty()
	}

	return m.renderWaveform(samples)
}

// renderWaveform renders audio samples as vertical bars across multiple rows.
func (m Model) renderWaveform(samples []float32) string {
	levels := m.calculateLevels(samples)
	runes := []rune(blockChars)

	var sb strings.Builder

	for row := 0; row < m.height; row++ {
		if row > 0 {
			sb.WriteString("\n")
		}

		var rowSB strings.Builder

		for col := 0; col < m.width; col++ {
			rowSB.WriteRune(runes[m.blockIndexForRow(levels[col], row)])
		}

		sb.WriteString(style.Progress.Render(rowSB.String()))
	}

	return sb.String()
}

// calculateLevels computes an amplitude level (0 to height*8) per column.
func (m Model) calculateLevels(samples []float32) []int {
	levels := make([]int, m.width)
	bucketSize := max(1, len(samples)/m.width)
	maxLevel := m.height * 8

	for col := 0; col < m.width; col++ {
		start := col * bucketSize
		if start >= len(samples) {
			levels[col] = 0

			continue
		}

		end := min(start+bucketSize, len(samples))
		levels[col] = amplitudeToLevel(maxAbsAmplitude(samples[start:end]), maxLevel)
	}

	return levels
}

// blockIndexForRow returns the block character index (0-8) for a given
// column level at a row. Row 0 is the top, row (height-1) is the bottom:
// the bottom row covers levels [0, 8], the row above [8, 16], and so on.
func (m Model) blockIndexForRow(level, row int) int {
	rowFromBottom := m.height - 1 - row
	fillAmount := level - rowFromBottom*8

	if fillAmount <= 0 {
		return 0
	}

	if fillAmount >= 8 {
		return 8
	}

	return fillAmount
}

// renderEmpty renders a muted baseline for when there are no samples.
func (m Model) renderEmpty() string {
	var sb strings.Builder

	for row := 0; row < m.height; row++ {
		if row > 0 {
			sb.WriteString("\n")
		}

		var rowSB strings.Builder

		for i := 0; i < m.width; i++ {
			if row == m.height-1 {
				rowSB.WriteRune('▁')
			} else {
				rowSB.WriteRune(' ')
			}
		}

		sb.WriteString(style.Muted.Render(rowSB.String()))
	}

	return sb.String()
}

// maxAbsAmplitude returns the peak absolute amplitude in a slice of samples.
func maxAbsAmplitude(samples []float32) float64 {
	var peak float64

	for _, s := range samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}

	return peak
}

// amplitudeToLevel maps a normalized amplitude (0-1) to a display level
// (0-maxLevel). Square-root scaling keeps quiet audio visible.
func amplitudeToLevel(amp float64, maxLevel int) int {
	if amp <= 0 {
		return 0
	}

	if amp > 1 {
		amp = 1
	}

	return min(int(math.Sqrt(amp)*float64(maxLevel)), maxLevel)
}
