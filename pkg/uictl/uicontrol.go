// Package uictl defines small control interfaces that decouple UI
// components from the hardware and state they display.
package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Knob is a simple on/off toggle control.
type Knob interface {
	Read() bool
	On()
	Off()
	Toggle()
}

// Levels is a control that can read multiple sample levels.
type Levels[N Number] interface {
	Read() []N
}
