// Package status provides a thread-safe status tracker for the green-switch
// daemon. It is read by the HTTP handlers and the console.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/green-switch/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Device      string
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	GPIO        bool
	History     bool
}

// SignalView is a read-only copy of one input signal.
type SignalView struct {
	ID      logic.SignalID
	Name    string
	Wire    string
	State   bool
	Edge    bool
	Used    bool
	Primary bool
}

// Decision is the most recent state change with its explanation.
type Decision struct {
	Timestamp time.Time
	From      logic.State
	To        logic.State
	Reason    string
	Rule      string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and remains valid after the lock is released.
type Snapshot struct {
	State          logic.State
	Signals        []SignalView
	Report         string
	Primary        logic.SignalID
	LastChange     *Decision
	Baselined      bool
	Counts         logic.Counts
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	HistoryHealthy bool
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// PrimaryName returns the display name of the primary signal, or "none".
func (s Snapshot) PrimaryName() string {
	if s.Primary == logic.NoSignal {
		return "none"
	}
	return s.Primary.String()
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     logic.StateOff,
			Primary:   logic.NoSignal,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// UpdateEngine copies the engine state. It must be called from the
// goroutine that owns the engine.
func (t *Tracker) UpdateEngine(e *logic.Engine) {
	signals := make([]SignalView, 0, logic.NumSignals)
	for _, id := range logic.AllSignals {
		sig := e.Signal(id)
		signals = append(signals, SignalView{
			ID:      id,
			Name:    id.String(),
			Wire:    id.WireName(),
			State:   sig.State,
			Edge:    sig.Edge,
			Used:    sig.Used,
			Primary: e.Primary() == id,
		})
	}

	t.mu.Lock()
	t.snap.State = e.State()
	t.snap.Signals = signals
	t.snap.Report = e.Report()
	t.snap.Primary = e.Primary()
	t.snap.Counts = e.Counts()
	t.mu.Unlock()
}

// RecordChange stores the decision that last changed the device state.
func (t *Tracker) RecordChange(at time.Time, tr logic.Trace) {
	d := &Decision{Timestamp: at, From: tr.From, To: tr.To, Reason: tr.Reason, Rule: tr.Rule}
	t.mu.Lock()
	t.snap.LastChange = d
	t.mu.Unlock()
}

// SetBaselined records whether the physical switch has a stable reading.
func (t *Tracker) SetBaselined(baselined bool) {
	t.mu.Lock()
	t.snap.Baselined = baselined
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetHistoryHealthy records the outcome of the last history health check.
func (t *Tracker) SetHistoryHealthy(healthy bool) {
	t.mu.Lock()
	t.snap.HistoryHealthy = healthy
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
