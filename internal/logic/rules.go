package logic

// Rule names, in cascade order.
const (
	RulePhysicalEdge     = "physical-edge"
	RuleWebEdge          = "web-edge"
	RulePhysicalLock     = "physical-lock"
	RuleTimerEdge        = "timer-edge"
	RuleAwayEdge         = "away-edge"
	RuleGreenAvailable   = "green-available"
	RuleGreenWithdrawn   = "green-withdrawn"
	RuleGreenEdgeCleanup = "green-edge-cleanup"
	RuleDefault          = "default"
)

const reasonRemain = "remain in current state"

// Decision is the outcome of one cascade evaluation.
type Decision struct {
	On     bool
	Reason string
	Rule   string
}

// Rule is one entry of the cascade. Match returns ok=false to let the
// next rule run; a matching rule may update the signals' latches.
type Rule struct {
	Name  string
	Match func(s *Signals, on bool) (Decision, bool)
}

// Cascade returns the rule table in priority order.
func Cascade() []Rule {
	return []Rule{
		{Name: RulePhysicalEdge, Match: physicalEdge},
		{Name: RuleWebEdge, Match: webEdge},
		{Name: RulePhysicalLock, Match: physicalLock},
		{Name: RuleTimerEdge, Match: timerEdge},
		{Name: RuleAwayEdge, Match: awayEdge},
		{Name: RuleGreenAvailable, Match: greenAvailable},
		{Name: RuleGreenWithdrawn, Match: greenWithdrawn},
		{Name: RuleGreenEdgeCleanup, Match: greenEdgeCleanup},
		{Name: RuleDefault, Match: remain},
	}
}

// Evaluate runs rules against the signals and the current device value.
// The first matching rule wins. Edges are cleared whichever rule fired.
func Evaluate(rules []Rule, s *Signals, on bool) Decision {
	defer s.ResetEdges()

	for _, r := range rules {
		if d, ok := r.Match(s, on); ok {
			d.Rule = r.Name
			return d
		}
	}
	return Decision{On: on, Reason: reasonRemain, Rule: RuleDefault}
}

func decide(on bool, reason string) (Decision, bool) {
	return Decision{On: on, Reason: reason}, true
}

// physicalEdge: the wall switch overrides everything.
func physicalEdge(s *Signals, _ bool) (Decision, bool) {
	p := s.Get(PhysicalSwitch)
	if !p.Edge {
		return Decision{}, false
	}
	s.SetPrimary(PhysicalSwitch)
	return decide(p.State, "Physical Switch was Toggled")
}

// webEdge is the only rule allowed to break an existing latch,
// including the physical switch's.
func webEdge(s *Signals, on bool) (Decision, bool) {
	if !s.Get(WebButton).Edge {
		return Decision{}, false
	}
	s.ResetPrimary()
	s.SetPrimary(WebButton)
	return decide(!on, "Web Button was Toggled")
}

// physicalLock: lower priority rules cannot turn off a device held ON by
// the wall switch.
func physicalLock(s *Signals, on bool) (Decision, bool) {
	if on && s.Get(PhysicalSwitch).State && s.IsPrimary(PhysicalSwitch) {
		return decide(on, "Device stays ON, held by the physical switch")
	}
	return Decision{}, false
}

func timerEdge(s *Signals, on bool) (Decision, bool) {
	t := s.Get(TimerForced)
	if !t.Edge {
		return Decision{}, false
	}
	if t.State {
		if on {
			return decide(on, "Timer started, but device was already ON")
		}
		s.SetPrimary(TimerForced)
		t.Used = true
		return decide(true, "Timer started")
	}
	if t.Used {
		s.Release(TimerForced)
		return decide(false, "Timer expired after switching the device ON")
	}
	return decide(on, "Timer expired without having switched the device, state kept")
}

// awayEdge only reacts while green energy owns the ON condition.
func awayEdge(s *Signals, on bool) (Decision, bool) {
	a := s.Get(AwayFromHome)
	if !a.Edge || !s.IsPrimary(ExcessGreen) {
		return Decision{}, false
	}
	if a.State && on {
		return decide(false, "Away from home, green energy would be wasted")
	}
	if !a.State && !on {
		return decide(true, "Back home and green energy is still available")
	}
	return Decision{}, false
}

func greenOK(s *Signals) bool {
	return s.Get(ExcessGreen).State && s.Get(TimerGreen).State
}

// greenAvailable is evaluated by level on every cascade, not by edge.
func greenAvailable(s *Signals, on bool) (Decision, bool) {
	if !greenOK(s) {
		return Decision{}, false
	}
	g := s.Get(ExcessGreen)
	if s.IsPrimary(ExcessGreen) {
		return decide(on, "Already running on green energy")
	}
	if on {
		// a forced timer may hand over to green energy once it expires
		if !s.IsPrimary(TimerForced) {
			g.Used = true
		}
		return decide(on, "Green energy available, but device is already ON")
	}
	if s.Get(AwayFromHome).State {
		g.Used = true
		return decide(on, "Green energy available, but nobody is home")
	}
	// greenOK implies the green timer is active
	if g.Used {
		return decide(on, "Green energy available, but it was already used and stopped, state kept")
	}
	s.SetPrimary(ExcessGreen)
	g.Used = true
	return decide(true, "Green energy available and green timer is active")
}

func greenWithdrawn(s *Signals, _ bool) (Decision, bool) {
	if greenOK(s) || !s.IsPrimary(ExcessGreen) {
		return Decision{}, false
	}
	s.Release(ExcessGreen)
	s.Get(ExcessGreen).Used = false
	return decide(false, "Green energy is no longer available")
}

func greenEdgeCleanup(s *Signals, on bool) (Decision, bool) {
	g := s.Get(ExcessGreen)
	if !g.Edge {
		return Decision{}, false
	}
	if g.State {
		return decide(on, "Excess green appeared, waiting for the green timer")
	}
	s.Release(ExcessGreen)
	g.Used = false
	return decide(on, "Excess green gone, green latches cleared")
}

func remain(_ *Signals, on bool) (Decision, bool) {
	return decide(on, reasonRemain)
}
