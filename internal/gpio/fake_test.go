package gpio

import (
	"errors"
	"testing"
)

func TestFakeReaderRead(t *testing.T) {
	f := NewFakeReader([]bool{true, false, true})

	for i, want := range []bool{true, false, true, true} {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("sample %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("sample %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader(nil)

	if _, err := f.Read(); err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader([]bool{true})
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeReaderCloseAndReset(t *testing.T) {
	f := NewFakeReader([]bool{true, false})

	f.Read()
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Reset()
	if f.Closed {
		t.Error("Reset should clear Closed")
	}
	if v, _ := f.Read(); v != true {
		t.Error("after reset: expected first sample again")
	}
}

func TestFakeRelay(t *testing.T) {
	r := NewFakeRelay()
	if r.On() {
		t.Error("new relay should be off")
	}

	r.Set(true)
	r.Set(false)
	r.Set(true)
	if len(r.Writes) != 3 || !r.On() {
		t.Errorf("unexpected writes: %v", r.Writes)
	}

	r.SetError = errors.New("bus error")
	if err := r.Set(false); err == nil {
		t.Error("expected SetError to be returned")
	}
	if !r.On() {
		t.Error("failed write must not be recorded")
	}

	r.Close()
	if !r.Closed {
		t.Error("should be closed after Close()")
	}
}
