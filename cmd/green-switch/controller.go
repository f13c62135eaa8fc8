package main

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/green-switch/internal/config"
	"github.com/sweeney/green-switch/internal/gpio"
	"github.com/sweeney/green-switch/internal/history"
	"github.com/sweeney/green-switch/internal/logging"
	"github.com/sweeney/green-switch/internal/logic"
	"github.com/sweeney/green-switch/internal/mqtt"
	"github.com/sweeney/green-switch/internal/status"
)

// controller owns the engine. Every input reaches it through runLoop, so
// the engine is only ever touched by one goroutine.
type controller struct {
	engine    *logic.Engine
	debouncer *logic.Debouncer
	heartbeat *logic.Heartbeat

	// Optional collaborators; nil disables them.
	reader     gpio.Reader
	relay      gpio.Relay
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	printer    func(logic.Trace)

	recorder      history.Recorder
	historyHealth history.HealthChecker
	tracker       *status.Tracker
	logger        *logging.Logger

	device            string
	heartbeatInterval time.Duration
	now               func() time.Time
	newID             func() string

	// Current settle, reset by apply.
	settleID   string
	step       int
	lastChange *logic.Trace
}

func newController(cfg *config.Config, logger *logging.Logger, tracker *status.Tracker) *controller {
	c := &controller{
		engine:            logic.NewEngine(),
		debouncer:         logic.NewDebouncer(cfg.GPIO.Debounce),
		recorder:          history.Nop{},
		tracker:           tracker,
		logger:            logger,
		device:            cfg.Device.Name,
		heartbeatInterval: cfg.Heartbeat,
		now:               time.Now,
		newID:             uuid.NewString,
	}
	c.engine.SetObserver(c)
	return c
}

// runLoop processes commands, switch samples and heartbeats until a signal
// arrives or ctx is cancelled.
func (c *controller) runLoop(ctx context.Context, commands <-chan logic.Command, tick <-chan time.Time, sig <-chan os.Signal) error {
	c.heartbeat = logic.NewHeartbeat(c.now())
	c.startup()

	for {
		select {
		case s := <-sig:
			c.logger.Info("shutting down", "signal", s.String())
			c.shutdown(signalName(s))
			return nil

		case <-ctx.Done():
			c.logger.Info("shutting down", "reason", "console exit")
			c.shutdown("CONSOLE")
			return nil

		case cmd := <-commands:
			c.apply(cmd, "remote")

		case t := <-tick:
			c.poll(ctx, t)
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// startup forces the relay to the engine's initial OFF state and announces
// the daemon.
func (c *controller) startup() {
	c.tracker.UpdateEngine(c.engine)
	c.driveRelay(c.engine.On())
	c.refreshConnection()

	snap := c.tracker.Snapshot()
	c.publishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	})
	c.publishState(c.engine.State(), "startup", "")
}

func (c *controller) shutdown(reason string) {
	c.refreshConnection()
	snap := c.tracker.Snapshot()
	c.publishSystem(mqtt.SystemEvent{
		Timestamp:  c.now(),
		Event:      "SHUTDOWN",
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
	})
}

// poll samples the physical switch and checks the heartbeat at tick time t.
func (c *controller) poll(ctx context.Context, t time.Time) {
	if c.reader != nil {
		on, err := c.reader.Read()
		if err != nil {
			c.logger.Warn("gpio read error", "error", err)
		} else if edge := c.debouncer.Process(on, t); edge != nil {
			source := "switch"
			if edge.Baseline {
				source = "switch baseline"
				c.tracker.SetBaselined(true)
			}
			c.apply(logic.Command{Signal: logic.PhysicalSwitch, Action: logic.ActionSet, Value: edge.On}, source)
		}
	}

	c.refreshConnection()

	if hb := c.heartbeat.Check(t, c.heartbeatInterval, c.engine.Counts()); hb != nil {
		c.logger.Info("heartbeat",
			"uptime", hb.Uptime,
			"on", hb.Counts.On,
			"off", hb.Counts.Off,
			"settles", hb.Counts.Settles)

		c.checkHistory(ctx)
		snap := c.tracker.Snapshot()
		c.publishSystem(mqtt.SystemEvent{
			Timestamp:  hb.Timestamp,
			Event:      "HEARTBEAT",
			RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
		})
	}
}

// apply feeds one command through the engine and commits the settled
// result to the outputs.
func (c *controller) apply(cmd logic.Command, source string) {
	c.settleID = c.newID()
	c.step = 0
	c.lastChange = nil
	before := c.engine.State()

	traces, err := c.engine.Apply(cmd)
	if err != nil {
		c.logger.Error("settle failed",
			"command", cmd.String(),
			"source", source,
			"steps", len(traces),
			"settle_id", c.settleID,
			"error", err)
	} else {
		c.logger.Debug("settled", "command", cmd.String(), "source", source, "steps", len(traces), "settle_id", c.settleID)
	}

	c.tracker.UpdateEngine(c.engine)

	after := c.engine.State()
	if after == before {
		return
	}

	reason, rule := "", ""
	if c.lastChange != nil {
		reason, rule = c.lastChange.Reason, c.lastChange.Rule
		c.tracker.RecordChange(c.now(), *c.lastChange)
	}
	c.logger.Info("switch changed",
		"from", before,
		"to", after,
		"command", cmd.String(),
		"source", source,
		"reason", reason,
		"rule", rule)

	c.driveRelay(after == logic.StateOn)
	c.publishStateChange(before, after, reason, rule)
}

// StateChanged is called for every flip inside a settle. The relay is only
// driven once the settle completes.
func (c *controller) StateChanged(on bool) {
	c.logger.Debug("step flipped state", "on", on, "settle_id", c.settleID)
}

// Traced publishes and records one committed step.
func (c *controller) Traced(tr logic.Trace) {
	c.step++
	at := c.now()
	if tr.Changed() {
		last := tr
		c.lastChange = &last
	}

	if c.printer != nil {
		c.printer(tr)
	}

	c.recorder.Record(history.Decision{
		Timestamp: at,
		Device:    c.device,
		SettleID:  c.settleID,
		Step:      c.step,
		Trace:     tr,
	})

	if c.publisher != nil {
		err := c.publisher.PublishTrace(mqtt.TraceEvent{
			Timestamp: at,
			SettleID:  c.settleID,
			Step:      c.step,
			Trace:     tr,
		})
		if err != nil {
			c.logger.Warn("trace publish error", "error", err)
		}
	}
}

func (c *controller) driveRelay(on bool) {
	if c.relay == nil {
		return
	}
	if err := c.relay.Set(on); err != nil {
		c.logger.Error("relay write failed", "on", on, "error", err)
	}
}

func (c *controller) publishState(state logic.State, reason, rule string) {
	c.publishStateChange(state, state, reason, rule)
}

func (c *controller) publishStateChange(previous, state logic.State, reason, rule string) {
	if c.publisher == nil {
		return
	}
	err := c.publisher.PublishState(mqtt.StateEvent{
		Timestamp: c.now(),
		State:     state,
		Previous:  previous,
		Reason:    reason,
		Rule:      rule,
		SettleID:  c.settleID,
	})
	if err != nil {
		// Don't crash on publish failure
		c.logger.Warn("state publish error", "error", err)
	}
}

func (c *controller) publishSystem(event mqtt.SystemEvent) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishSystem(event); err != nil {
		c.logger.Warn("system event publish error", "event", event.Event, "error", err)
		return
	}
	c.logger.Info("published system event", "event", event.Event)
}

// checkHistory pings the history backend and records the result.
func (c *controller) checkHistory(ctx context.Context) {
	if c.historyHealth == nil {
		return
	}
	err := c.historyHealth.HealthCheck(ctx)
	if err != nil {
		c.logger.Warn("history health check failed", "error", err)
	}
	c.tracker.SetHistoryHealthy(err == nil)
}

func (c *controller) refreshConnection() {
	if c.mqttStatus != nil {
		c.tracker.SetMQTTConnected(c.mqttStatus.IsConnected())
	}
}
