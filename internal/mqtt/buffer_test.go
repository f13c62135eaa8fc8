package mqtt

import (
	"fmt"
	"testing"
)

func traceMsg(step int) bufferedMsg {
	return bufferedMsg{topic: "home/green-switch/lounge/trace", payload: []byte(fmt.Sprintf("step-%d", step))}
}

func payloads(msgs []bufferedMsg) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.payload)
	}
	return out
}

func TestRingBufferKeepsNewest(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushed   int
		want     []string
	}{
		{"empty", 4, 0, nil},
		{"below capacity", 4, 2, []string{"step-0", "step-1"}},
		{"exactly full", 3, 3, []string{"step-0", "step-1", "step-2"}},
		{"wrapped", 3, 5, []string{"step-2", "step-3", "step-4"}},
		{"zero capacity holds one", 0, 3, []string{"step-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := newRingBuffer(tt.capacity)
			for i := 0; i < tt.pushed; i++ {
				rb.push(traceMsg(i))
			}
			if rb.len() != len(tt.want) {
				t.Errorf("len: got %d, want %d", rb.len(), len(tt.want))
			}

			got := rb.drainAll()
			if tt.want == nil {
				if got != nil {
					t.Errorf("expected nil drain, got %v", payloads(got))
				}
				return
			}
			if fmt.Sprint(payloads(got)) != fmt.Sprint(tt.want) {
				t.Errorf("drained %v, want %v", payloads(got), tt.want)
			}
			if rb.len() != 0 || rb.drainAll() != nil {
				t.Error("buffer should be empty after drain")
			}
		})
	}
}

func TestRingBufferReuseAfterDrain(t *testing.T) {
	rb := newRingBuffer(4)
	rb.push(traceMsg(1))
	rb.push(traceMsg(2))
	rb.push(traceMsg(3))
	rb.drainAll()

	for i := 10; i < 13; i++ {
		rb.push(traceMsg(i))
	}
	got := payloads(rb.drainAll())
	if fmt.Sprint(got) != "[step-10 step-11 step-12]" {
		t.Errorf("second cycle drained %v", got)
	}
}

func TestRingBufferKeepsPublishOptions(t *testing.T) {
	rb := newRingBuffer(2)
	rb.push(bufferedMsg{topic: "home/green-switch/lounge/state", payload: []byte(`{"switch":{}}`), qos: 1, retained: true})

	got := rb.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	m := got[0]
	if m.topic != "home/green-switch/lounge/state" || string(m.payload) != `{"switch":{}}` || m.qos != 1 || !m.retained {
		t.Errorf("state message altered in buffer: %+v", m)
	}
}

func TestRingBufferReportsFirstDropOnly(t *testing.T) {
	rb := newRingBuffer(2)
	var reports []bool
	for i := 0; i < 4; i++ {
		reports = append(reports, rb.push(traceMsg(i)))
	}
	if fmt.Sprint(reports) != "[false false true false]" {
		t.Errorf("drop reports %v", reports)
	}

	rb.drainAll()
	rb.push(traceMsg(4))
	rb.push(traceMsg(5))
	if !rb.push(traceMsg(6)) {
		t.Error("overflow after a drain should be reported again")
	}
}
