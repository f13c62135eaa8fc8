package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/green-switch/internal/config"
	"github.com/sweeney/green-switch/internal/logging"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	disconnectWait = 1000 // milliseconds
)

// RealClient publishes to and receives commands from an actual MQTT broker.
// Messages published while the broker is unreachable are kept in a ring
// buffer and replayed on reconnection.
type RealClient struct {
	client paho.Client
	topics Topics
	qos    byte
	logger *logging.Logger
	isOpen func() bool

	mu            sync.Mutex
	buffer        *ringBuffer
	handler       CommandHandler
	connectedOnce bool
}

// NewRealClient connects to the broker described by cfg. A broker that is
// not reachable yet is not an error: paho keeps retrying in the background
// and publishes are buffered meanwhile.
func NewRealClient(cfg config.MQTTConfig, topics Topics, logger *logging.Logger) (*RealClient, error) {
	c := &RealClient{
		topics: topics,
		qos:    byte(cfg.QoS),
		logger: logger.With("component", "mqtt"),
		buffer: newRingBuffer(cfg.BufferSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(topics.System(), string(FormatWillPayload(time.Now())), 1, false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c.client = paho.NewClient(opts)
	c.isOpen = c.client.IsConnectionOpen
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		c.logger.Warn("broker not reachable yet, buffering messages", "broker", cfg.Broker)
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return c, nil
}

func (c *RealClient) onConnect(client paho.Client) {
	c.mu.Lock()
	reconnect := c.connectedOnce
	c.connectedOnce = true
	handler := c.handler
	c.mu.Unlock()

	if handler != nil {
		if err := c.subscribe(handler); err != nil {
			c.logger.Error("resubscribe failed", "error", err)
		}
	}

	// paho marks the connection open before calling onConnect, so anything
	// buffered after the first drain is picked up by the next one.
	for pending := c.drainPending(); len(pending) > 0; pending = c.drainPending() {
		c.logger.Info("replaying buffered messages", "count", len(pending))
		for _, msg := range pending {
			token := client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
			if !token.WaitTimeout(publishTimeout) || token.Error() != nil {
				c.logger.Warn("replay failed", "topic", msg.topic, "error", token.Error())
			}
		}
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		client.Publish(c.topics.System(), 1, false, payload)
		c.logger.Info("reconnected to broker")
	}
}

func (c *RealClient) onConnectionLost(_ paho.Client, err error) {
	c.logger.Warn("connection to broker lost", "error", err)
}

// IsConnected reports whether the broker connection is currently up.
func (c *RealClient) IsConnected() bool {
	return c.isOpen()
}

// SubscribeCommands registers handler for the command topics. The
// subscription is renewed after every reconnection.
func (c *RealClient) SubscribeCommands(handler CommandHandler) error {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	if !c.isOpen() {
		// onConnect subscribes once the broker is reachable
		return nil
	}
	return c.subscribe(handler)
}

func (c *RealClient) subscribe(handler CommandHandler) error {
	token := c.client.Subscribe(c.topics.CommandFilter(), c.qos, func(_ paho.Client, msg paho.Message) {
		cmd, err := c.topics.ParseCommand(msg.Topic(), msg.Payload())
		if err != nil {
			c.logger.Warn("ignoring command", "topic", msg.Topic(), "payload", string(msg.Payload()), "error", err)
			return
		}
		handler(cmd)
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.topics.CommandFilter(), err)
	}
	return nil
}

// PublishState sends a device state change, retained so late subscribers
// see the current state.
func (c *RealClient) PublishState(event StateEvent) error {
	payload, err := FormatStatePayload(event)
	if err != nil {
		return fmt.Errorf("format state payload: %w", err)
	}
	return c.publish(c.topics.State(), 1, true, payload)
}

// PublishTrace sends one cascade evaluation record.
func (c *RealClient) PublishTrace(event TraceEvent) error {
	payload, err := FormatTracePayload(event)
	if err != nil {
		return fmt.Errorf("format trace payload: %w", err)
	}
	return c.publish(c.topics.Trace(), 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return c.publish(c.topics.System(), 1, event.Retained, payload)
}

func (c *RealClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	buffered, dropped := c.bufferIfOffline(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
	if dropped {
		c.logger.Warn("offline buffer full, dropping oldest messages")
	}
	if buffered {
		return nil
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// bufferIfOffline queues msg when the broker is unreachable. The check and
// the push happen under the same lock as drainPending, so a message is
// either published now or replayed by onConnect.
func (c *RealClient) bufferIfOffline(msg bufferedMsg) (buffered, dropped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isOpen() {
		return false, false
	}
	return true, c.buffer.push(msg)
}

func (c *RealClient) drainPending() []bufferedMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.drainAll()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(disconnectWait)
	return nil
}
