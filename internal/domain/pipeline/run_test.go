package pipeline

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to State }{
		{StateBuilding, StateScanning},
		{StateScanning, StateEvaluating},
		{StateEvaluating, StatePublishing},
		{StatePublishing, StateDone},
		{StateBuilding, StateFailed},
		{StateScanning, StateFailed},
		{StateEvaluating, StateFailed},
		{StatePublishing, StateFailed},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}

	illegal := []struct{ from, to State }{
		{StateBuilding, StateEvaluating},
		{StateBuilding, StateDone},
		{StateScanning, StatePublishing},
		{StateScanning, StateBuilding},
		{StateDone, StateFailed},
		{StateDone, StateBuilding},
		{StateFailed, StateScanning},
	}
	for _, tc := range illegal {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []State{StateDone, StateFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []State{StateBuilding, StateScanning, StateEvaluating, StatePublishing} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestAdvanceRejectsIllegalJump(t *testing.T) {
	r := &Run{ID: "test", State: StateBuilding}

	if err := r.Advance(StateScanning); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if r.State != StateScanning {
		t.Fatalf("state = %s, want scanning", r.State)
	}

	err := r.Advance(StateDone)
	if err == nil {
		t.Fatal("expected transition error")
	}
	var terr *TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("error type = %T, want *TransitionError", err)
	}
	if r.State != StateScanning {
		t.Fatalf("failed transition must not change state, got %s", r.State)
	}
}
