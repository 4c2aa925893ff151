package accum

import (
	"sync"
	"testing"
)

func TestMachine_InitialState(t *testing.T) {
	m := NewMachine(&Latch{})
	if m.State() != Accumulating {
		t.Errorf("initial state = %v, want Accumulating", m.State())
	}
	if got := m.Begin(); got != Accumulating {
		t.Errorf("Begin() without reset = %v, want Accumulating", got)
	}
}

func TestMachine_ResetLastsOneFrame(t *testing.T) {
	var latch Latch
	m := NewMachine(&latch)

	latch.Request()
	want := []State{Clearing, Accumulating, Accumulating}
	for i, w := range want {
		if got := m.Begin(); got != w {
			t.Errorf("frame %d: Begin() = %v, want %v", i, got, w)
		}
	}
}

func TestMachine_RequestsCoalesce(t *testing.T) {
	var latch Latch
	m := NewMachine(&latch)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			latch.Request()
		}()
	}
	wg.Wait()

	clears := 0
	for range 4 {
		if m.Begin() == Clearing {
			clears++
		}
	}
	if clears != 1 {
		t.Errorf("clears = %d, want 1", clears)
	}
}

func TestLatch_TakeConsumes(t *testing.T) {
	var l Latch
	if l.Take() {
		t.Fatal("zero latch should not be armed")
	}
	l.Request()
	if !l.Pending() {
		t.Fatal("Pending() = false after Request")
	}
	if !l.Take() {
		t.Fatal("Take() = false after Request")
	}
	if l.Take() || l.Pending() {
		t.Fatal("latch still armed after Take")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Accumulating, "Accumulating"},
		{Clearing, "Clearing"},
		{State(9), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
