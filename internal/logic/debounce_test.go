package logic

import (
	"testing"
	"time"
)

func setupBaselinedDebouncer(t *testing.T, on bool) *Debouncer {
	t.Helper()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(250 * time.Millisecond)
	d.Process(on, now)
	if e := d.Process(on, now.Add(250*time.Millisecond)); e == nil || !e.Baseline {
		t.Fatalf("expected baseline edge, got %+v", e)
	}
	return d
}

func TestBaselineEstablishment(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(250 * time.Millisecond)

	if e := d.Process(true, now); e != nil {
		t.Errorf("expected no edge on first sample, got %+v", e)
	}
	if d.IsBaselined() {
		t.Error("should not be baselined after first sample")
	}

	if e := d.Process(true, now.Add(200*time.Millisecond)); e != nil {
		t.Errorf("expected no edge before debounce period, got %+v", e)
	}

	e := d.Process(true, now.Add(250*time.Millisecond))
	if e == nil {
		t.Fatal("expected baseline edge after debounce period")
	}
	if !e.Baseline || !e.On {
		t.Errorf("expected baseline ON, got %+v", e)
	}
	if d.Stable() != StateOn {
		t.Errorf("expected stable ON, got %s", d.Stable())
	}
}

func TestBaselineResetOnChange(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(250 * time.Millisecond)

	d.Process(true, now)
	d.Process(false, now.Add(100*time.Millisecond))

	// full debounce from the first sample is not enough
	if e := d.Process(false, now.Add(250*time.Millisecond)); e != nil {
		t.Errorf("expected no edge, got %+v", e)
	}

	e := d.Process(false, now.Add(350*time.Millisecond))
	if e == nil || !e.Baseline || e.On {
		t.Fatalf("expected baseline OFF, got %+v", e)
	}
}

func TestZeroDebounceBaselinesImmediately(t *testing.T) {
	d := NewDebouncer(0)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	e := d.Process(true, now)
	if e == nil || !e.Baseline {
		t.Fatalf("expected immediate baseline, got %+v", e)
	}
	e = d.Process(false, now.Add(time.Millisecond))
	if e == nil || e.Baseline || e.On {
		t.Fatalf("expected immediate OFF edge, got %+v", e)
	}
}

func TestNoEdgesForStableState(t *testing.T) {
	d := setupBaselinedDebouncer(t, true)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		if e := d.Process(true, now.Add(time.Duration(i)*100*time.Millisecond)); e != nil {
			t.Errorf("iteration %d: expected no edge, got %+v", i, e)
		}
	}
}

func TestSingleTransition(t *testing.T) {
	d := setupBaselinedDebouncer(t, false)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	if e := d.Process(true, now); e != nil {
		t.Errorf("expected no edge before debounce, got %+v", e)
	}
	if e := d.Process(true, now.Add(200*time.Millisecond)); e != nil {
		t.Errorf("expected no edge before debounce, got %+v", e)
	}

	e := d.Process(true, now.Add(250*time.Millisecond))
	if e == nil {
		t.Fatal("expected edge after debounce")
	}
	if e.Baseline || !e.On {
		t.Errorf("expected ON transition, got %+v", e)
	}
}

func TestBounceShorterThanDebounce(t *testing.T) {
	d := setupBaselinedDebouncer(t, true)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	d.Process(false, now)
	d.Process(true, now.Add(100*time.Millisecond))

	if e := d.Process(true, now.Add(300*time.Millisecond)); e != nil {
		t.Errorf("expected no edge after bounce, got %+v", e)
	}
	if d.Stable() != StateOn {
		t.Errorf("expected ON after bounce, got %s", d.Stable())
	}
}

func TestMultipleBounces(t *testing.T) {
	d := setupBaselinedDebouncer(t, false)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	for i, v := range []bool{true, false, true, false, true} {
		if e := d.Process(v, now.Add(time.Duration(i*50)*time.Millisecond)); e != nil {
			t.Errorf("iteration %d: expected no edge during bouncing, got %+v", i, e)
		}
	}

	// timer restarted at the last change (200ms)
	if e := d.Process(true, now.Add(250*time.Millisecond)); e != nil {
		t.Errorf("expected no edge yet, got %+v", e)
	}
	e := d.Process(true, now.Add(450*time.Millisecond))
	if e == nil || !e.On {
		t.Fatalf("expected ON edge after settling, got %+v", e)
	}
}

func TestHeartbeat(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h := NewHeartbeat(start)
	counts := Counts{On: 2, Off: 1}

	if hb := h.Check(start.Add(time.Minute), 0, counts); hb != nil {
		t.Error("interval 0 disables heartbeats")
	}
	if hb := h.Check(start.Add(14*time.Minute), 15*time.Minute, counts); hb != nil {
		t.Error("heartbeat before interval elapsed")
	}

	hb := h.Check(start.Add(15*time.Minute), 15*time.Minute, counts)
	if hb == nil {
		t.Fatal("expected heartbeat")
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("unexpected uptime %v", hb.Uptime)
	}
	if hb.Counts != counts {
		t.Errorf("unexpected counts %+v", hb.Counts)
	}

	if hb := h.Check(start.Add(16*time.Minute), 15*time.Minute, counts); hb != nil {
		t.Error("heartbeat interval must restart from the last heartbeat")
	}
}
