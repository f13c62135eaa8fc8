package mqtt

import (
	"testing"

	"github.com/sweeney/green-switch/internal/logging"
)

func newOfflineClient(open *bool) *RealClient {
	return &RealClient{
		topics: NewTopics("home/green-switch/lounge"),
		logger: logging.Discard(),
		isOpen: func() bool { return *open },
		buffer: newRingBuffer(4),
	}
}

func TestBufferIfOfflineQueuesWhileDisconnected(t *testing.T) {
	open := false
	c := newOfflineClient(&open)

	buffered, dropped := c.bufferIfOffline(bufferedMsg{topic: c.topics.State(), qos: 1, retained: true})
	if !buffered || dropped {
		t.Fatalf("expected the state message to be buffered, got buffered=%v dropped=%v", buffered, dropped)
	}
	if c.IsConnected() {
		t.Error("client should report disconnected")
	}

	pending := c.drainPending()
	if len(pending) != 1 || pending[0].topic != "home/green-switch/lounge/state" || !pending[0].retained {
		t.Errorf("unexpected pending messages: %+v", pending)
	}
}

func TestBufferIfOfflineAfterReconnectDrain(t *testing.T) {
	open := false
	c := newOfflineClient(&open)
	c.bufferIfOffline(bufferedMsg{topic: c.topics.Trace()})

	// reconnect: the connection is marked open before the buffer is drained
	open = true
	if got := len(c.drainPending()); got != 1 {
		t.Fatalf("expected 1 replayed message, got %d", got)
	}

	buffered, _ := c.bufferIfOffline(bufferedMsg{topic: c.topics.State(), retained: true})
	if buffered {
		t.Error("a message published after the drain must go straight to the broker")
	}
	if c.drainPending() != nil {
		t.Error("nothing should be stranded in the buffer")
	}
}

func TestBufferIfOfflineReportsOverflow(t *testing.T) {
	open := false
	c := newOfflineClient(&open)
	c.buffer = newRingBuffer(1)

	if _, dropped := c.bufferIfOffline(bufferedMsg{topic: c.topics.Trace()}); dropped {
		t.Error("first message fits")
	}
	if _, dropped := c.bufferIfOffline(bufferedMsg{topic: c.topics.Trace()}); !dropped {
		t.Error("second message should report the overflow")
	}
}
