package tui

import "github.com/soundloom/soundloom/internal/audio"

// RingLevels adapts the recording ring to the waveform's Levels control.
type RingLevels struct {
	Ring *audio.Ring
}

// Read returns a copy of the currently recorded samples.
func (r RingLevels) Read() []float32 {
	samples, _ := r.Ring.Snapshot()

	return samples
}

// PlaybackKnob adapts result playback arming to the Knob control.
type PlaybackKnob struct {
	Bridge *audio.Bridge
}

// Read reports whether playback is armed.
func (k PlaybackKnob) Read() bool { return k.Bridge.Playing() }

// On arms playback.
func (k PlaybackKnob) On() { k.Bridge.SetPlayback(true) }

// Off disarms playback.
func (k PlaybackKnob) Off() { k.Bridge.SetPlayback(false) }

// Toggle flips playback arming.
func (k PlaybackKnob) Toggle() { k.Bridge.SetPlayback(!k.Bridge.Playing()) }
