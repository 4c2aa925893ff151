// Package accum decides, once per frame, whether the persistent
// accumulator is merged into or cleared.
package accum

import "sync/atomic"

// State is the accumulation mode of a single frame.
type State uint8

const (
	// Accumulating merges the frame histogram into the accumulator.
	Accumulating State = iota

	// Clearing zeroes the accumulator and the max-hits counter. It lasts
	// exactly one frame.
	Clearing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Accumulating:
		return "Accumulating"
	case Clearing:
		return "Clearing"
	default:
		return "Unknown"
	}
}

// Latch is a single-slot reset flag. Any number of Request calls between
// two Take calls collapse into one reset. The zero value is ready to use.
type Latch struct {
	pending atomic.Bool
}

// Request arms the latch. Safe to call from any goroutine.
func (l *Latch) Request() { l.pending.Store(true) }

// Take reports whether the latch was armed and disarms it.
func (l *Latch) Take() bool { return l.pending.Swap(false) }

// Pending reports whether a reset is waiting without consuming it.
func (l *Latch) Pending() bool { return l.pending.Load() }

// Machine samples a Latch at the start of every frame.
// Machine itself is driven from a single goroutine (the frame builder).
type Machine struct {
	latch *Latch
	state State
}

// NewMachine returns a machine in the Accumulating state reading latch.
func NewMachine(latch *Latch) *Machine {
	return &Machine{latch: latch, state: Accumulating}
}

// Begin starts a frame and returns its state. It returns Clearing if a
// reset was requested since the previous Begin, Accumulating otherwise.
func (m *Machine) Begin() State {
	if m.latch.Take() {
		m.state = Clearing
	} else {
		m.state = Accumulating
	}
	return m.state
}

// State returns the state chosen by the last Begin.
func (m *Machine) State() State { return m.state }
