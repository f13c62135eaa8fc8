package history

import (
	"context"
	"sync"
)

// FakeRecorder keeps recorded decisions in memory for test assertions.
type FakeRecorder struct {
	mu        sync.Mutex
	Decisions []Decision
	Closed    bool

	// HealthErr, if set, is returned by HealthCheck.
	HealthErr    error
	HealthChecks int
}

// NewFakeRecorder creates an empty FakeRecorder.
func NewFakeRecorder() *FakeRecorder {
	return &FakeRecorder{}
}

// Record appends d.
func (f *FakeRecorder) Record(d Decision) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Decisions = append(f.Decisions, d)
}

// Close marks the recorder as closed.
func (f *FakeRecorder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Len returns the number of recorded decisions.
func (f *FakeRecorder) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Decisions)
}

// All returns a copy of the recorded decisions.
func (f *FakeRecorder) All() []Decision {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Decision, len(f.Decisions))
	copy(out, f.Decisions)
	return out
}

// HealthCheck counts the call and returns HealthErr, or ErrNotConnected
// once closed.
func (f *FakeRecorder) HealthCheck(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HealthChecks++
	if f.Closed {
		return ErrNotConnected
	}
	return f.HealthErr
}
