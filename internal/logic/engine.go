package logic

import (
	"errors"
	"fmt"
	"strings"
)

// MaxSettleSteps bounds Settle. The rules are meant to be acyclic, so a
// chain of reactions can flip the device at most once per signal.
const MaxSettleSteps = NumSignals + 1

// ErrNotStable is returned by Settle when the cascade keeps flipping the
// device state. It indicates a defect in the rule table.
var ErrNotStable = errors.New("logic: cascade did not stabilize")

// Observer receives engine notifications synchronously from Step.
// Implementations must not mutate the engine.
type Observer interface {
	// StateChanged is called when a step flips the device state.
	StateChanged(on bool)
	// Traced is called once per committed step.
	Traced(t Trace)
}

// Engine holds the device state and its signals and decides the next state.
// It is not safe for concurrent use; one goroutine must own it.
type Engine struct {
	on       bool
	signals  Signals
	rules    []Rule
	maxSteps int
	observer Observer
	counts   Counts
}

// NewEngine creates an engine with the device OFF and all signals cleared.
func NewEngine() *Engine {
	return newEngineWithRules(Cascade(), MaxSettleSteps)
}

func newEngineWithRules(rules []Rule, maxSteps int) *Engine {
	return &Engine{
		signals:  NewSignals(),
		rules:    rules,
		maxSteps: maxSteps,
	}
}

// SetObserver registers o for state and trace notifications. Nil disables them.
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

// On returns the current device value.
func (e *Engine) On() bool {
	return e.on
}

// State returns the current device state.
func (e *Engine) State() State {
	return StateOf(e.on)
}

// StateString returns "ON" or "OFF".
func (e *Engine) StateString() string {
	return string(e.State())
}

// Signal returns a copy of the signal id.
func (e *Engine) Signal(id SignalID) Signal {
	return *e.signals.Get(id)
}

// Primary returns the signal currently owning the ON condition.
func (e *Engine) Primary() SignalID {
	return e.signals.Primary()
}

// Counts returns a copy of the activity counters.
func (e *Engine) Counts() Counts {
	return e.counts
}

// Set assigns an absolute value to a signal and reports whether it changed.
// Callers must follow it with Settle.
func (e *Engine) Set(id SignalID, v bool) bool {
	return e.signals.Get(id).Set(v)
}

// Toggle inverts a signal. Callers must follow it with Settle.
func (e *Engine) Toggle(id SignalID) {
	e.signals.Get(id).Toggle()
}

// ResetEdges clears all pending edges.
func (e *Engine) ResetEdges() {
	e.signals.ResetEdges()
}

// ResetPrimary clears the owner of the ON condition.
func (e *Engine) ResetPrimary() {
	e.signals.ResetPrimary()
}

// Apply performs cmd and settles the device.
func (e *Engine) Apply(cmd Command) ([]Trace, error) {
	if cmd.Signal < 0 || int(cmd.Signal) >= NumSignals {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownSignal, cmd.Signal)
	}
	switch cmd.Action {
	case ActionToggle:
		e.Toggle(cmd.Signal)
	default:
		e.Set(cmd.Signal, cmd.Value)
	}
	return e.Settle()
}

// Step evaluates the cascade once and commits the result.
func (e *Engine) Step() Trace {
	old := e.on
	d := Evaluate(e.rules, &e.signals, e.on)
	e.on = d.On
	e.counts.Steps++

	t := Trace{From: StateOf(old), To: StateOf(e.on), Reason: d.Reason, Rule: d.Rule}
	if old != e.on {
		if e.on {
			e.counts.On++
		} else {
			e.counts.Off++
		}
		if e.observer != nil {
			e.observer.StateChanged(e.on)
		}
	}
	if e.observer != nil {
		e.observer.Traced(t)
	}

	// the next web toggle must start from the real device value
	e.signals.Get(WebButton).State = e.on
	return t
}

// Settle repeats Step until the device state stops changing.
// It returns every committed trace, and ErrNotStable when the step
// budget is exhausted.
func (e *Engine) Settle() ([]Trace, error) {
	traces := make([]Trace, 0, 2)
	for i := 0; i < e.maxSteps; i++ {
		t := e.Step()
		traces = append(traces, t)
		if !t.Changed() {
			e.counts.Settles++
			return traces, nil
		}
	}
	return traces, fmt.Errorf("%w after %d steps, device %s", ErrNotStable, e.maxSteps, e.State())
}

// Report returns one "name: state edge" line per signal for diagnostics.
func (e *Engine) Report() string {
	var b strings.Builder
	for _, id := range AllSignals {
		s := e.signals.Get(id)
		fmt.Fprintf(&b, "%-16s %s", s.Name+":", s.Report())
		if e.signals.IsPrimary(id) {
			b.WriteString("    primary")
		}
		if s.Used {
			b.WriteString("    used")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
