// Package mqtt provides MQTT publishing and command subscription with
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/green-switch/internal/logic"
)

// ErrNotCommandTopic is returned when a topic is not below the command prefix.
var ErrNotCommandTopic = errors.New("mqtt: not a command topic")

// Publisher publishes controller events to MQTT.
type Publisher interface {
	// PublishState sends a settled device state change (retained).
	// Returns error if publishing fails (should not crash the process).
	PublishState(event StateEvent) error

	// PublishTrace sends one cascade evaluation record.
	PublishTrace(event TraceEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// CommandHandler receives signal commands decoded from the command topics.
// It is called from the MQTT client goroutine.
type CommandHandler func(cmd logic.Command)

// Subscriber delivers remote signal commands.
type Subscriber interface {
	SubscribeCommands(handler CommandHandler) error
}

// Topics builds the topic names below a device prefix.
type Topics struct {
	Prefix string
}

// NewTopics returns the topics for prefix, without trailing slash.
func NewTopics(prefix string) Topics {
	return Topics{Prefix: strings.TrimSuffix(prefix, "/")}
}

// State is the retained device state topic.
func (t Topics) State() string { return t.Prefix + "/state" }

// Trace carries one message per cascade evaluation.
func (t Topics) Trace() string { return t.Prefix + "/trace" }

// System carries lifecycle events (STARTUP, SHUTDOWN, HEARTBEAT, ...).
func (t Topics) System() string { return t.Prefix + "/system" }

// Command is the topic accepting values for one signal.
func (t Topics) Command(id logic.SignalID) string { return t.Prefix + "/set/" + id.WireName() }

// CommandFilter matches every command topic.
func (t Topics) CommandFilter() string { return t.Prefix + "/set/+" }

// ParseCommand decodes a message received on a command topic.
func (t Topics) ParseCommand(topic string, payload []byte) (logic.Command, error) {
	base := t.Prefix + "/set/"
	if !strings.HasPrefix(topic, base) {
		return logic.Command{}, fmt.Errorf("%w: %s", ErrNotCommandTopic, topic)
	}
	return logic.ParseCommand(strings.TrimPrefix(topic, base), string(payload))
}

// StateEvent is a settled device state change.
type StateEvent struct {
	Timestamp time.Time
	State     logic.State
	Previous  logic.State
	Reason    string
	Rule      string
	SettleID  string
}

// TraceEvent is one committed cascade step.
type TraceEvent struct {
	Timestamp time.Time
	SettleID  string
	Step      int
	Trace     logic.Trace
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// StatePayload is the MQTT payload for a state change.
type StatePayload struct {
	Switch SwitchPayload `json:"switch"`
}

// SwitchPayload contains the state change details.
type SwitchPayload struct {
	Timestamp string `json:"timestamp"`
	State     string `json:"state"`
	Previous  string `json:"previous"`
	Reason    string `json:"reason"`
	Rule      string `json:"rule"`
	SettleID  string `json:"settle_id,omitempty"`
}

// FormatStatePayload creates the JSON payload for a state change.
func FormatStatePayload(event StateEvent) ([]byte, error) {
	return json.Marshal(StatePayload{
		Switch: SwitchPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			State:     string(event.State),
			Previous:  string(event.Previous),
			Reason:    event.Reason,
			Rule:      event.Rule,
			SettleID:  event.SettleID,
		},
	})
}

// TracePayload is the MQTT payload for one trace record.
type TracePayload struct {
	Trace TraceInner `json:"trace"`
}

// TraceInner contains the trace record details.
type TraceInner struct {
	Timestamp string `json:"timestamp"`
	SettleID  string `json:"settle_id,omitempty"`
	Step      int    `json:"step"`
	From      string `json:"from"`
	To        string `json:"to"`
	Changed   bool   `json:"changed"`
	Rule      string `json:"rule"`
	Reason    string `json:"reason"`
	Text      string `json:"text"`
}

// FormatTracePayload creates the JSON payload for a trace record.
func FormatTracePayload(event TraceEvent) ([]byte, error) {
	tr := event.Trace
	return json.Marshal(TracePayload{
		Trace: TraceInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			SettleID:  event.SettleID,
			Step:      event.Step,
			From:      string(tr.From),
			To:        string(tr.To),
			Changed:   tr.Changed(),
			Rule:      tr.Rule,
			Reason:    tr.Reason,
			Text:      tr.String(),
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

// FormatWillPayload returns the last-will message registered at connect time.
func FormatWillPayload(connectedAt time.Time) []byte {
	data, _ := FormatSystemPayload(SystemEvent{
		Timestamp: connectedAt,
		Event:     "OFFLINE",
		Reason:    "connection lost",
	})
	return data
}
