package logic

import (
	"errors"
	"testing"
)

func TestSignalSet(t *testing.T) {
	var s Signal

	if !s.Set(true) {
		t.Fatal("Set(true) on a false signal should report a change")
	}
	if !s.State || !s.Edge {
		t.Errorf("expected state=true edge=true, got state=%v edge=%v", s.State, s.Edge)
	}

	s.Edge = false
	if s.Set(true) {
		t.Error("Set(true) twice should not report a change")
	}
	if s.Edge {
		t.Error("repeated Set must not raise the edge")
	}
	if !s.State {
		t.Error("repeated Set must not change the state")
	}
}

func TestSignalSetSameValueEveryValue(t *testing.T) {
	for _, v := range []bool{true, false} {
		s := Signal{State: !v}
		s.Set(v)
		s.Edge = false
		s.Set(v)
		if s.Edge || s.State != v {
			t.Errorf("Set(%v) twice: state=%v edge=%v", v, s.State, s.Edge)
		}
	}
}

func TestSignalToggleOnOff(t *testing.T) {
	var s Signal

	s.Toggle()
	if !s.State || !s.Edge {
		t.Errorf("toggle from false: state=%v edge=%v", s.State, s.Edge)
	}

	s.Edge = false
	s.On()
	if s.Edge {
		t.Error("On() on an ON signal should not raise the edge")
	}

	s.Off()
	if s.State || !s.Edge {
		t.Errorf("Off(): state=%v edge=%v", s.State, s.Edge)
	}
}

func TestSignalReport(t *testing.T) {
	tests := []struct {
		s    Signal
		want string
	}{
		{Signal{}, "False    False"},
		{Signal{State: true}, "True     False"},
		{Signal{State: true, Edge: true}, "True     True"},
		{Signal{Edge: true}, "False    True"},
	}
	for _, tt := range tests {
		if got := tt.s.Report(); got != tt.want {
			t.Errorf("Report(%+v) = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestNewSignals(t *testing.T) {
	s := NewSignals()

	if s.Primary() != NoSignal {
		t.Errorf("expected no primary, got %v", s.Primary())
	}
	for _, id := range AllSignals {
		sig := s.Get(id)
		if sig.Name != id.String() {
			t.Errorf("signal %d: name %q, want %q", id, sig.Name, id.String())
		}
		if sig.State || sig.Edge || sig.Used {
			t.Errorf("%s: expected all flags cleared, got %+v", sig.Name, *sig)
		}
	}
}

func TestSignalsPrimaryIsSingleOwner(t *testing.T) {
	s := NewSignals()

	s.SetPrimary(TimerForced)
	s.SetPrimary(ExcessGreen)
	if s.IsPrimary(TimerForced) {
		t.Error("setting a new primary must displace the previous owner")
	}
	if !s.IsPrimary(ExcessGreen) {
		t.Error("ExcessGreen should be primary")
	}

	s.Release(TimerForced)
	if !s.IsPrimary(ExcessGreen) {
		t.Error("releasing a non-owner must not clear the owner")
	}

	s.Release(ExcessGreen)
	if s.Primary() != NoSignal {
		t.Errorf("expected no primary after release, got %v", s.Primary())
	}
}

func TestSignalsResetEdges(t *testing.T) {
	s := NewSignals()
	for _, id := range AllSignals {
		s.Get(id).On()
	}
	if !s.AnyEdge() {
		t.Fatal("expected pending edges")
	}
	s.ResetEdges()
	if s.AnyEdge() {
		t.Error("ResetEdges left an edge set")
	}
	for _, id := range AllSignals {
		if !s.Get(id).State {
			t.Errorf("%v: ResetEdges must not touch the state", id)
		}
	}
}

func TestParseSignal(t *testing.T) {
	for _, id := range AllSignals {
		got, err := ParseSignal(id.WireName())
		if err != nil {
			t.Fatalf("ParseSignal(%q): %v", id.WireName(), err)
		}
		if got != id {
			t.Errorf("ParseSignal(%q) = %v, want %v", id.WireName(), got, id)
		}
	}

	if got, err := ParseSignal(" Excess-Green "); err != nil || got != ExcessGreen {
		t.Errorf("case-insensitive parse failed: %v %v", got, err)
	}

	_, err := ParseSignal("boiler")
	if !errors.Is(err, ErrUnknownSignal) {
		t.Errorf("expected ErrUnknownSignal, got %v", err)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		signal, value string
		want          Command
	}{
		{"physical", "ON", Command{Signal: PhysicalSwitch, Action: ActionSet, Value: true}},
		{"timer", "off", Command{Signal: TimerForced, Action: ActionSet}},
		{"away", "1", Command{Signal: AwayFromHome, Action: ActionSet, Value: true}},
		{"green-timer", "false", Command{Signal: TimerGreen, Action: ActionSet}},
		{"web", "toggle", Command{Signal: WebButton, Action: ActionToggle}},
	}
	for _, tt := range tests {
		got, err := ParseCommand(tt.signal, tt.value)
		if err != nil {
			t.Fatalf("ParseCommand(%q, %q): %v", tt.signal, tt.value, err)
		}
		if got != tt.want {
			t.Errorf("ParseCommand(%q, %q) = %+v, want %+v", tt.signal, tt.value, got, tt.want)
		}
	}

	if _, err := ParseCommand("web", "maybe"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
	if _, err := ParseCommand("lamp", "on"); !errors.Is(err, ErrUnknownSignal) {
		t.Errorf("expected ErrUnknownSignal, got %v", err)
	}
}

func TestCommandString(t *testing.T) {
	if got := (Command{Signal: AwayFromHome, Value: true}).String(); got != "away on" {
		t.Errorf("got %q", got)
	}
	if got := (Command{Signal: WebButton, Action: ActionToggle}).String(); got != "web toggle" {
		t.Errorf("got %q", got)
	}
}
