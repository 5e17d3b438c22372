package settlement

import (
	"errors"
	"testing"
)

func TestHappyPath(t *testing.T) {
	s := StatePending
	for _, step := range []struct {
		event EventKind
		want  State
	}{
		{EventSubmitted, StateExecutorSubmitted},
		{EventFilled, StateExecutorFilled},
		{EventDistributed, StateAssetsDistributed},
	} {
		next, err := Next(s, step.event)
		if err != nil {
			t.Fatalf("%s + %s: %v", s, step.event, err)
		}
		if next != step.want {
			t.Fatalf("%s + %s = %s want=%s", s, step.event, next, step.want)
		}
		s = next
	}
	if !IsTerminal(s) {
		t.Fatalf("%s should be terminal", s)
	}
}

func TestFailureReachableFromEveryNonTerminalState(t *testing.T) {
	for _, from := range []State{StatePending, StateExecutorSubmitted, StateExecutorFilled} {
		next, err := Next(from, EventFailed)
		if err != nil || next != StateFailed {
			t.Fatalf("%s + failed = (%s, %v)", from, next, err)
		}
		next, err = Next(from, EventExpired)
		if err != nil || next != StateExpired {
			t.Fatalf("%s + expired = (%s, %v)", from, next, err)
		}
	}
}

func TestTerminalStatesAbsorbNothing(t *testing.T) {
	events := []EventKind{EventSubmitted, EventFilled, EventDistributed, EventFailed, EventExpired}
	for _, terminal := range []State{StateAssetsDistributed, StateFailed, StateExpired} {
		for _, ev := range events {
			if _, err := Next(terminal, ev); !errors.Is(err, ErrIllegalTransition) {
				t.Fatalf("%s + %s: got err=%v want ErrIllegalTransition", terminal, ev, err)
			}
		}
	}
}

func TestNoPhaseSkipping(t *testing.T) {
	cases := []struct {
		from  State
		event EventKind
	}{
		{StatePending, EventFilled},
		{StatePending, EventDistributed},
		{StateExecutorSubmitted, EventSubmitted},
		{StateExecutorSubmitted, EventDistributed},
		{StateExecutorFilled, EventSubmitted},
		{StateExecutorFilled, EventFilled},
	}
	for _, tc := range cases {
		if _, err := Next(tc.from, tc.event); !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("%s + %s: got err=%v want ErrIllegalTransition", tc.from, tc.event, err)
		}
	}
}

func TestIsValid(t *testing.T) {
	if IsValid(State("limbo")) {
		t.Fatalf("unknown state reported valid")
	}
	if !IsValid(StateExecutorSubmitted) {
		t.Fatalf("known state reported invalid")
	}
}
