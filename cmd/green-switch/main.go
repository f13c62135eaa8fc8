// Command green-switch decides when a switched load (lamp, heater, EV
// charger) should be powered, from a physical switch, a web button, timers,
// presence and the availability of excess green energy.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/green-switch/internal/config"
	"github.com/sweeney/green-switch/internal/console"
	"github.com/sweeney/green-switch/internal/discovery"
	"github.com/sweeney/green-switch/internal/gpio"
	"github.com/sweeney/green-switch/internal/history"
	"github.com/sweeney/green-switch/internal/logging"
	"github.com/sweeney/green-switch/internal/logic"
	"github.com/sweeney/green-switch/internal/mqtt"
	"github.com/sweeney/green-switch/internal/status"
	"github.com/sweeney/green-switch/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "YAML configuration file (built-in defaults when empty)")
	broker := flag.String("broker", "", "MQTT broker address (overrides the config file)")
	printState := flag.Bool("print-state", false, "Print the physical switch state and exit")
	interactive := flag.Bool("console", false, "Start the interactive console")
	showVersion := flag.Bool("version", false, "Print the version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Default().Error("load config", "error", err)
		os.Exit(1)
	}
	if *broker != "" {
		cfg.MQTT.Enabled = true
		cfg.MQTT.Broker = *broker
	}

	logger := logging.New(cfg.Logging, version)
	if err := run(cfg, logger, *printState, *interactive); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger, printState, interactive bool) error {
	var (
		reader gpio.Reader
		relay  gpio.Relay
	)
	if cfg.GPIO.Enabled {
		r, err := gpio.NewRealReader(cfg.GPIO.Chip, cfg.GPIO.SwitchPin, cfg.GPIO.SwitchActiveLow)
		if err != nil {
			return fmt.Errorf("init switch input: %w", err)
		}
		defer r.Close()
		reader = r
	}

	// Print state mode
	if printState {
		if reader == nil {
			return errors.New("print-state needs gpio enabled")
		}
		on, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("Physical Switch: %s\n", logic.StateOf(on))
		return nil
	}

	if cfg.GPIO.Enabled && cfg.GPIO.RelayPin >= 0 {
		r, err := gpio.NewRealRelay(cfg.GPIO.Chip, cfg.GPIO.RelayPin, cfg.GPIO.RelayActiveLow)
		if err != nil {
			return fmt.Errorf("init relay: %w", err)
		}
		defer r.Close()
		relay = r
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	commands := make(chan logic.Command, cfg.HTTP.QueueSize)
	tracker := status.NewTracker(time.Now(), status.Config{
		Device:      cfg.Device.Name,
		PollMs:      cfg.GPIO.Poll.Milliseconds(),
		DebounceMs:  cfg.GPIO.Debounce.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      brokerLabel(cfg.MQTT),
		HTTPAddr:    cfg.HTTP.Addr,
		GPIO:        cfg.GPIO.Enabled,
		History:     cfg.InfluxDB.Enabled,
	})

	// The console owns the terminal, so logs go through its writer.
	var con *console.Console
	if interactive {
		c, err := console.New(commands, tracker)
		if err != nil {
			return err
		}
		con = c
		logger = logging.NewWithWriter(cfg.Logging, version, con.Stdout())
	}

	c := newController(cfg, logger, tracker)
	c.reader = reader
	c.relay = relay
	if con != nil {
		c.printer = con.PrintTrace
	}

	if cfg.MQTT.Enabled {
		topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix + "/" + cfg.Device.Name)
		client, err := mqtt.NewRealClient(cfg.MQTT, topics, logger)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer client.Close()
		c.publisher = client
		c.mqttStatus = client

		subscribeCommands(client, commands, logger)
		logger.Info("mqtt enabled", "broker", cfg.MQTT.Broker, "topics", topics.Prefix)
	}

	if cfg.InfluxDB.Enabled {
		client, err := history.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			// History is best effort; the switch keeps working without it.
			logger.Warn("decision history unavailable", "error", err)
		} else {
			client.SetOnError(func(err error) {
				logger.Warn("history write failed", "error", err)
			})
			defer client.Close()
			c.recorder = client
			c.historyHealth = client
			tracker.SetHistoryHealthy(true)
		}
	}

	if cfg.HTTP.Addr != "" {
		ln, err := net.Listen("tcp", cfg.HTTP.Addr)
		if err != nil {
			return fmt.Errorf("listen http: %w", err)
		}
		srv := web.New(cfg.HTTP.Addr, tracker, commands)
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", "addr", ln.Addr().String())

		if cfg.Discovery.Enabled {
			adv := discovery.NewAdvertiser(cfg.Discovery)
			if err := adv.Start(cfg.Device.Name, version, ln.Addr().String()); err != nil {
				logger.Warn("mdns advertisement failed", "error", err)
			} else {
				defer adv.Stop()
				logger.Info("advertising status page", "service", discovery.ServiceType, "instance", discovery.InstanceName(cfg.Device.Name))
			}
		}
	}

	if con != nil {
		go con.Run(ctx, cancel)
	}

	logger.Info("started",
		"device", cfg.Device.Name,
		"gpio", cfg.GPIO.Enabled,
		"poll", cfg.GPIO.Poll,
		"debounce", cfg.GPIO.Debounce,
		"heartbeat", cfg.Heartbeat)

	// The tick also drives heartbeats when GPIO is disabled.
	poll := cfg.GPIO.Poll
	if poll <= 0 {
		poll = time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return c.runLoop(ctx, commands, ticker.C, sigCh)
}

// subscribeCommands forwards remote commands from sub to the run loop.
// A failed subscription only loses remote control, so it is not fatal.
func subscribeCommands(sub mqtt.Subscriber, commands chan<- logic.Command, logger *logging.Logger) bool {
	if err := sub.SubscribeCommands(queueCommand(commands, logger)); err != nil {
		logger.Warn("command subscription failed", "error", err)
		return false
	}
	return true
}

// queueCommand returns an MQTT handler that forwards commands to the loop
// without blocking the MQTT client.
func queueCommand(commands chan<- logic.Command, logger *logging.Logger) mqtt.CommandHandler {
	return func(cmd logic.Command) {
		select {
		case commands <- cmd:
		default:
			logger.Warn("command queue full, dropping", "command", cmd.String(), "source", "mqtt")
		}
	}
}

func brokerLabel(cfg config.MQTTConfig) string {
	if !cfg.Enabled {
		return ""
	}
	return cfg.Broker
}
