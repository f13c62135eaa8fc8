package logic

import "time"

// ChannelState tracks debounce state for a single input line.
type ChannelState struct {
	// Current stable (debounced) state
	Stable State
	// Pending state during debounce
	Pending State
	// Time when pending state was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}

// SwitchEdge is a debounced change of the physical switch.
type SwitchEdge struct {
	On bool
	// Baseline is true for the first stable reading after startup.
	Baseline bool
}

// Debouncer filters contact bounce on the physical switch input.
type Debouncer struct {
	duration time.Duration
	ch       ChannelState
}

// NewDebouncer creates a debouncer requiring a reading to hold for d.
func NewDebouncer(d time.Duration) *Debouncer {
	return &Debouncer{duration: d}
}

// Process takes a new input sample and returns a non-nil edge when the
// debounced value changes. The first edge is the baseline.
func (d *Debouncer) Process(on bool, now time.Time) *SwitchEdge {
	newState := StateOf(on)
	ch := &d.ch

	// First time seeing this line
	if !ch.Baselined {
		if ch.Pending != newState {
			// Start observing, or state changed during baseline: restart
			ch.Pending = newState
			ch.PendingSince = now
			if d.duration > 0 {
				return nil
			}
		}
		if now.Sub(ch.PendingSince) < d.duration {
			return nil
		}
		ch.Stable = newState
		ch.Baselined = true
		ch.Pending = ""
		return &SwitchEdge{On: on, Baseline: true}
	}

	// Already baselined - detect transitions
	if newState == ch.Stable {
		// No change from stable state, clear any pending
		ch.Pending = ""
		return nil
	}

	if ch.Pending != newState {
		ch.Pending = newState
		ch.PendingSince = now
		if d.duration > 0 {
			return nil
		}
	}

	if now.Sub(ch.PendingSince) >= d.duration {
		ch.Stable = newState
		ch.Pending = ""
		return &SwitchEdge{On: on}
	}
	return nil
}

// IsBaselined returns whether the debouncer has established a baseline.
func (d *Debouncer) IsBaselined() bool {
	return d.ch.Baselined
}

// Stable returns the current debounced state, empty before the baseline.
func (d *Debouncer) Stable() State {
	return d.ch.Stable
}

// Heartbeat decides when a periodic liveness event is due.
type Heartbeat struct {
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewHeartbeat creates a heartbeat clock started at startTime.
func NewHeartbeat(startTime time.Time) *Heartbeat {
	return &Heartbeat{startTime: startTime, lastHeartbeat: startTime}
}

// Check returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not
// elapsed, or if interval is <= 0 (disabled).
func (h *Heartbeat) Check(now time.Time, interval time.Duration, counts Counts) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(h.lastHeartbeat) < interval {
		return nil
	}
	h.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(h.startTime),
		Counts:    counts,
	}
}
