package mqtt

import (
	"sync"
)

// FakeClient records published events and delivers commands for test
// assertions. It is safe for concurrent use.
type FakeClient struct {
	mu sync.Mutex

	// Topics is used to build topics and parse delivered commands.
	Topics Topics

	// States contains all state events that were published.
	States []StateEvent

	// StatePayloads contains the JSON payloads for state events.
	StatePayloads [][]byte

	// Traces contains all trace events that were published.
	Traces []TraceEvent

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by every publish method.
	PublishError error

	// SubscribeError, if set, will be returned by SubscribeCommands.
	SubscribeError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	handler CommandHandler
}

// NewFakeClient creates a FakeClient for testing.
func NewFakeClient(topics Topics) *FakeClient {
	return &FakeClient{Topics: topics, Connected: true}
}

// PublishState records the state event.
func (f *FakeClient) PublishState(event StateEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatStatePayload(event)
	if err != nil {
		return err
	}
	f.States = append(f.States, event)
	f.StatePayloads = append(f.StatePayloads, payload)
	return nil
}

// PublishTrace records the trace event.
func (f *FakeClient) PublishTrace(event TraceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Traces = append(f.Traces, event)
	return nil
}

// PublishSystem records the system event.
func (f *FakeClient) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// SubscribeCommands stores handler for Deliver.
func (f *FakeClient) SubscribeCommands(handler CommandHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.handler = handler
	return nil
}

// Deliver simulates an inbound message on topic. It returns the parse error
// a real client would log, or nil when no handler is subscribed.
func (f *FakeClient) Deliver(topic, payload string) error {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()

	cmd, err := f.Topics.ParseCommand(topic, []byte(payload))
	if err != nil {
		return err
	}
	if handler != nil {
		handler(cmd)
	}
	return nil
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake client is "connected".
func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// SystemEventNames returns the Event field of every recorded system event.
func (f *FakeClient) SystemEventNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		names[i] = e.Event
	}
	return names
}

// StateCount returns the number of recorded state events.
func (f *FakeClient) StateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.States)
}

// Reset clears recorded events.
func (f *FakeClient) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.States = nil
	f.StatePayloads = nil
	f.Traces = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.SubscribeError = nil
}
