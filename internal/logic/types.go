// Package logic contains pure business logic for the switch controller.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// State represents the logical state of the switched device.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// StateOf converts a boolean device value to its State.
func StateOf(on bool) State {
	if on {
		return StateOn
	}
	return StateOff
}

// SignalID identifies one of the six input signals.
type SignalID int

const (
	PhysicalSwitch SignalID = iota
	WebButton
	TimerForced
	AwayFromHome
	TimerGreen
	ExcessGreen

	// NoSignal means no signal currently owns the ON condition.
	NoSignal SignalID = -1
)

// NumSignals is the fixed size of a Signals set.
const NumSignals = 6

var signalNames = [NumSignals]string{
	"Physical Switch",
	"Web Button",
	"Timer Forced",
	"Away From Home",
	"Timer Green",
	"Excess Green",
}

// wire names are used in MQTT topics, HTTP paths and console commands.
var wireNames = [NumSignals]string{
	"physical",
	"web",
	"timer",
	"away",
	"green-timer",
	"excess-green",
}

// AllSignals lists every signal in priority order.
var AllSignals = [NumSignals]SignalID{PhysicalSwitch, WebButton, TimerForced, AwayFromHome, TimerGreen, ExcessGreen}

// String returns the display name of the signal.
func (id SignalID) String() string {
	if id < 0 || int(id) >= NumSignals {
		return "none"
	}
	return signalNames[id]
}

// WireName returns the short name used by the MQTT, HTTP and console front ends.
func (id SignalID) WireName() string {
	if id < 0 || int(id) >= NumSignals {
		return ""
	}
	return wireNames[id]
}

var (
	// ErrUnknownSignal is returned when a signal name cannot be resolved.
	ErrUnknownSignal = errors.New("logic: unknown signal")

	// ErrInvalidValue is returned when a command value cannot be parsed.
	ErrInvalidValue = errors.New("logic: invalid signal value")
)

// ParseSignal resolves a wire name (case-insensitive) to a SignalID.
func ParseSignal(name string) (SignalID, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, w := range wireNames {
		if n == w {
			return SignalID(i), nil
		}
	}
	return NoSignal, fmt.Errorf("%w: %q", ErrUnknownSignal, name)
}

// Action is what a Command does to its signal.
type Action int

const (
	ActionSet Action = iota
	ActionToggle
)

// Command is a single external signal change.
type Command struct {
	Signal SignalID
	Action Action
	Value  bool // ignored for ActionToggle
}

// String renders the command the way the console accepts it.
func (c Command) String() string {
	if c.Action == ActionToggle {
		return c.Signal.WireName() + " toggle"
	}
	if c.Value {
		return c.Signal.WireName() + " on"
	}
	return c.Signal.WireName() + " off"
}

// ParseCommand builds a Command from a signal wire name and a value.
// Accepted values: ON, OFF, TOGGLE, true, false, 1, 0 (case-insensitive).
func ParseCommand(signal, value string) (Command, error) {
	id, err := ParseSignal(signal)
	if err != nil {
		return Command{}, err
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1":
		return Command{Signal: id, Action: ActionSet, Value: true}, nil
	case "off", "false", "0":
		return Command{Signal: id, Action: ActionSet, Value: false}, nil
	case "toggle":
		return Command{Signal: id, Action: ActionToggle}, nil
	}
	return Command{}, fmt.Errorf("%w: %q", ErrInvalidValue, value)
}

// Trace records one cascade evaluation committed by Engine.Step.
type Trace struct {
	From   State
	To     State
	Reason string
	Rule   string
}

// Changed reports whether the step flipped the device state.
func (t Trace) Changed() bool {
	return t.From != t.To
}

// String returns the human readable trace line.
func (t Trace) String() string {
	if t.Changed() {
		return fmt.Sprintf("Transition: %s -> %s\n%s", t.From, t.To, t.Reason)
	}
	return fmt.Sprintf("Stable: %s\n%s", t.To, t.Reason)
}

// Counts tracks engine activity since startup.
type Counts struct {
	On      int // OFF -> ON transitions
	Off     int // ON -> OFF transitions
	Steps   int // cascade evaluations
	Settles int // completed stabilizations
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}
