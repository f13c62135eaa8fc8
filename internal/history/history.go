// Package history records every cascade decision as a time series point so
// the reasons behind each switch change can be queried later.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sweeney/green-switch/internal/logic"
)

// Measurement is the InfluxDB measurement holding decisions.
const Measurement = "switch_decision"

var (
	// ErrDisabled indicates history recording is disabled in config.
	ErrDisabled = errors.New("history: disabled in configuration")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("history: connection failed")

	// ErrNotConnected indicates the client is not connected.
	ErrNotConnected = errors.New("history: not connected")
)

// Decision is one committed cascade step.
type Decision struct {
	Timestamp time.Time
	Device    string
	SettleID  string
	Step      int
	Trace     logic.Trace
}

// Recorder stores decisions. Implementations must not block the caller.
type Recorder interface {
	Record(d Decision)
	Close() error
}

// HealthChecker reports whether the history backend is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewDecisionPoint converts a decision into an InfluxDB point. Device and
// rule are tags; everything else is a field.
func NewDecisionPoint(d Decision) *write.Point {
	return write.NewPoint(
		Measurement,
		map[string]string{
			"device": d.Device,
			"rule":   d.Trace.Rule,
		},
		map[string]interface{}{
			"state":     string(d.Trace.To),
			"previous":  string(d.Trace.From),
			"changed":   d.Trace.Changed(),
			"reason":    d.Trace.Reason,
			"step":      d.Step,
			"settle_id": d.SettleID,
		},
		d.Timestamp,
	)
}

// Nop discards every decision. It is used when history is disabled.
type Nop struct{}

// Record does nothing.
func (Nop) Record(Decision) {}

// Close does nothing.
func (Nop) Close() error { return nil }
