package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Device        string        `json:"device"`
	State         string        `json:"state"`
	Primary       string        `json:"primary"`
	Ready         bool          `json:"ready"`
	LastChange    *DecisionJSON `json:"last_change,omitempty"`
	Signals       []SignalJSON  `json:"signals"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	History       HistoryStatus `json:"history"`
	Counts        CountsJSON    `json:"counts"`
	Config        ConfigJSON    `json:"config"`
}

// DecisionJSON is the JSON representation of the last state change.
type DecisionJSON struct {
	Timestamp string `json:"timestamp"`
	From      string `json:"from"`
	To        string `json:"to"`
	Reason    string `json:"reason"`
	Rule      string `json:"rule"`
}

// SignalJSON is the JSON representation of one signal.
type SignalJSON struct {
	Name    string `json:"name"`
	Wire    string `json:"id"`
	State   bool   `json:"state"`
	Edge    bool   `json:"edge"`
	Used    bool   `json:"used"`
	Primary bool   `json:"primary"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// HistoryStatus reports decision history health.
type HistoryStatus struct {
	Enabled bool `json:"enabled"`
	Healthy bool `json:"healthy"`
}

// CountsJSON is the JSON representation of decision counts.
type CountsJSON struct {
	On      int `json:"on"`
	Off     int `json:"off"`
	Steps   int `json:"steps"`
	Settles int `json:"settles"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	GPIO        bool   `json:"gpio"`
	History     bool   `json:"history"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}

	signals := make([]SignalJSON, len(snap.Signals))
	for i, s := range snap.Signals {
		signals[i] = SignalJSON{
			Name:    s.Name,
			Wire:    s.Wire,
			State:   s.State,
			Edge:    s.Edge,
			Used:    s.Used,
			Primary: s.Primary,
		}
	}

	inner := StatusInner{
		Device:        snap.Config.Device,
		State:         state,
		Primary:       snap.PrimaryName(),
		Ready:         snap.Baselined,
		Signals:       signals,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		History:       HistoryStatus{Enabled: snap.Config.History, Healthy: snap.HistoryHealthy},
		Counts: CountsJSON{
			On:      snap.Counts.On,
			Off:     snap.Counts.Off,
			Steps:   snap.Counts.Steps,
			Settles: snap.Counts.Settles,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			GPIO:        snap.Config.GPIO,
			History:     snap.Config.History,
		},
	}

	if d := snap.LastChange; d != nil {
		inner.LastChange = &DecisionJSON{
			Timestamp: d.Timestamp.UTC().Format(time.RFC3339),
			From:      string(d.From),
			To:        string(d.To),
			Reason:    d.Reason,
			Rule:      d.Rule,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
