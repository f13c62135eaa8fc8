package logic

import "fmt"

// Signal is an edge-sensitive boolean input.
type Signal struct {
	Name  string
	State bool
	// Edge is set by a value change and cleared after the next evaluation.
	Edge bool
	// Used suppresses re-triggering of this signal's ON condition until a
	// rule clears it.
	Used bool
}

// Set assigns a new value and reports whether it changed.
func (s *Signal) Set(v bool) bool {
	if v == s.State {
		return false
	}
	s.State = v
	s.Edge = true
	return true
}

// Toggle inverts the value.
func (s *Signal) Toggle() {
	s.Set(!s.State)
}

// On sets the value to true.
func (s *Signal) On() {
	s.Set(true)
}

// Off sets the value to false.
func (s *Signal) Off() {
	s.Set(false)
}

// Report returns the diagnostic "state edge" text.
func (s Signal) Report() string {
	return fmt.Sprintf("%-5s    %s", boolWord(s.State), boolWord(s.Edge))
}

func boolWord(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Signals is the fixed set of six inputs plus the owner of the ON condition.
// Only one signal can be primary at a time; marking a new one displaces
// the previous owner.
type Signals struct {
	list    [NumSignals]Signal
	primary SignalID
}

// NewSignals creates the six named signals with every flag cleared.
func NewSignals() Signals {
	var s Signals
	for i := range s.list {
		s.list[i].Name = signalNames[i]
	}
	s.primary = NoSignal
	return s
}

// Get returns the signal for id. It panics on an out of range id.
func (s *Signals) Get(id SignalID) *Signal {
	return &s.list[id]
}

// Primary returns the signal currently owning the ON condition, or NoSignal.
func (s *Signals) Primary() SignalID {
	return s.primary
}

// IsPrimary reports whether id owns the ON condition.
func (s *Signals) IsPrimary(id SignalID) bool {
	return s.primary == id
}

// SetPrimary makes id the owner of the ON condition.
func (s *Signals) SetPrimary(id SignalID) {
	s.primary = id
}

// Release drops id's ownership. It is a no-op if id is not the owner.
func (s *Signals) Release(id SignalID) {
	if s.primary == id {
		s.primary = NoSignal
	}
}

// ResetPrimary clears ownership for every signal.
func (s *Signals) ResetPrimary() {
	s.primary = NoSignal
}

// ResetEdges clears the edge flag of every signal.
func (s *Signals) ResetEdges() {
	for i := range s.list {
		s.list[i].Edge = false
	}
}

// AnyEdge reports whether at least one signal has a pending edge.
func (s *Signals) AnyEdge() bool {
	for i := range s.list {
		if s.list[i].Edge {
			return true
		}
	}
	return false
}
