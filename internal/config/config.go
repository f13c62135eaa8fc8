// Package config loads the green-switch daemon configuration.
//
// Configuration is read from an optional YAML file on top of built-in
// defaults, then overridden by GREENSWITCH_* environment variables and
// validated. Secrets (MQTT password, InfluxDB token) should be set through
// the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Logging   LoggingConfig   `yaml:"logging"`
	// Heartbeat is the interval between HEARTBEAT system events (0 disables).
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// DeviceConfig identifies the controlled device.
type DeviceConfig struct {
	Name string `yaml:"name"`
}

// GPIOConfig contains the wall switch input and relay output settings.
type GPIOConfig struct {
	Enabled bool   `yaml:"enabled"`
	Chip    string `yaml:"chip"`
	// SwitchPin and RelayPin use BCM numbering. RelayPin < 0 disables the relay.
	SwitchPin       int           `yaml:"switch_pin"`
	RelayPin        int           `yaml:"relay_pin"`
	SwitchActiveLow bool          `yaml:"switch_active_low"`
	RelayActiveLow  bool          `yaml:"relay_active_low"`
	Poll            time.Duration `yaml:"poll"`
	Debounce        time.Duration `yaml:"debounce"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
	// BufferSize is the number of messages kept while disconnected.
	BufferSize int `yaml:"buffer_size"`
}

// HTTPConfig contains the status server settings. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// QueueSize bounds the command channel shared by all front ends.
	QueueSize int `yaml:"queue_size"`
}

// InfluxDBConfig contains decision history settings.
type InfluxDBConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	Token         string        `yaml:"token"`
	Org           string        `yaml:"org"`
	Bucket        string        `yaml:"bucket"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// DiscoveryConfig controls mDNS advertisement of the status page.
type DiscoveryConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Interface string `yaml:"interface"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{Name: "green-switch"},
		GPIO: GPIOConfig{
			Enabled:         true,
			Chip:            "gpiochip0",
			SwitchPin:       26,
			RelayPin:        16,
			SwitchActiveLow: true,
			Poll:            100 * time.Millisecond,
			Debounce:        250 * time.Millisecond,
		},
		MQTT: MQTTConfig{
			Enabled:     true,
			Broker:      "tcp://localhost:1883",
			ClientID:    "green-switch",
			TopicPrefix: "home/green-switch",
			QoS:         1,
			BufferSize:  100,
		},
		HTTP: HTTPConfig{
			Addr:      ":8080",
			QueueSize: 16,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Heartbeat: 15 * time.Minute,
	}
}

// Load reads path on top of the defaults. An empty path uses the defaults
// alone. Environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GREENSWITCH_DEVICE_NAME"); v != "" {
		cfg.Device.Name = v
	}
	if v := os.Getenv("GREENSWITCH_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("GREENSWITCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("GREENSWITCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("GREENSWITCH_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("GREENSWITCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("GREENSWITCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Device.Name) == "" {
		errs = append(errs, "device.name is required")
	}

	if c.GPIO.Enabled {
		if c.GPIO.SwitchPin < 0 {
			errs = append(errs, "gpio.switch_pin must be >= 0")
		}
		if c.GPIO.RelayPin >= 0 && c.GPIO.RelayPin == c.GPIO.SwitchPin {
			errs = append(errs, "gpio.relay_pin must differ from gpio.switch_pin")
		}
		if c.GPIO.Poll <= 0 {
			errs = append(errs, "gpio.poll must be positive")
		}
		if c.GPIO.Debounce < 0 {
			errs = append(errs, "gpio.debounce must not be negative")
		}
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, "mqtt.broker is required")
		}
		if c.MQTT.TopicPrefix == "" || strings.ContainsAny(c.MQTT.TopicPrefix, "#+") {
			errs = append(errs, "mqtt.topic_prefix must be set and must not contain wildcards")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.BufferSize < 1 {
			errs = append(errs, "mqtt.buffer_size must be at least 1")
		}
	}

	if c.HTTP.QueueSize < 1 {
		errs = append(errs, "http.queue_size must be at least 1")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required")
		}
	}

	if c.Discovery.Enabled && c.HTTP.Addr == "" {
		errs = append(errs, "discovery requires http.addr")
	}

	if c.Heartbeat < 0 {
		errs = append(errs, "heartbeat must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
