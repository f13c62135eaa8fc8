package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/green-switch/internal/logic"
	"github.com/sweeney/green-switch/internal/status"
)

func newTestServer(t *testing.T, queue int) (*httptest.Server, *status.Tracker, chan logic.Command) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Device:      "lounge",
		PollMs:      100,
		DebounceMs:  250,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":8080",
	}
	tr := status.NewTracker(start, cfg)
	commands := make(chan logic.Command, queue)
	srv := New(":0", tr, commands)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, commands
}

func post(t *testing.T, url, body string) (*http.Response, CommandResponse) {
	t.Helper()
	resp, err := http.Post(url, "text/plain", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	var cr CommandResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return resp, cr
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t, 1)
	e := logic.NewEngine()
	e.Apply(logic.Command{Signal: logic.TimerForced, Value: true})
	tr.UpdateEngine(e)
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.State != "ON" {
		t.Errorf("State: got %q, want ON", sj.Status.State)
	}
	if sj.Status.Primary != "Timer Forced" {
		t.Errorf("Primary: got %q", sj.Status.Primary)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Device != "lounge" {
		t.Errorf("Device: got %q", sj.Status.Device)
	}
}

func TestHTMLEndpoints(t *testing.T) {
	ts, tr, _ := newTestServer(t, 1)
	tr.UpdateEngine(logic.NewEngine())
	tr.RecordChange(time.Date(2026, 1, 1, 7, 0, 0, 0, time.UTC), logic.Trace{
		From: logic.StateOn, To: logic.StateOff, Reason: "Timer expired", Rule: logic.RuleTimerEdge,
	})

	for _, path := range []string{"/", "/index.html"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != 200 {
			t.Errorf("%s: status %d", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s: Content-Type %q", path, ct)
		}
		html := string(body)
		for _, want := range []string{"Green Switch (lounge)", "Excess Green", "Timer expired (timer-edge)", `action="/api/web"`} {
			if !strings.Contains(html, want) {
				t.Errorf("%s: missing %q", path, want)
			}
		}
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t, 1)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _, _ := newTestServer(t, 1)

	resp, err := http.Get(ts.URL + "/api/web")
	if err != nil {
		t.Fatalf("GET /api/web: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestWebToggleQueuesCommand(t *testing.T) {
	ts, _, commands := newTestServer(t, 1)

	resp, cr := post(t, ts.URL+"/api/web", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", resp.StatusCode)
	}
	if cr.Accepted != "web toggle" {
		t.Errorf("accepted: got %q", cr.Accepted)
	}

	select {
	case cmd := <-commands:
		if cmd.Signal != logic.WebButton || cmd.Action != logic.ActionToggle {
			t.Errorf("unexpected command: %+v", cmd)
		}
	default:
		t.Fatal("expected a queued command")
	}
}

func TestSignalEndpoint(t *testing.T) {
	tests := []struct {
		name, body string
		wantCode   int
		want       logic.Command
	}{
		{"away", "ON", http.StatusAccepted, logic.Command{Signal: logic.AwayFromHome, Value: true}},
		{"excess-green", " off\n", http.StatusAccepted, logic.Command{Signal: logic.ExcessGreen}},
		{"web", "TOGGLE", http.StatusAccepted, logic.Command{Signal: logic.WebButton, Action: logic.ActionToggle}},
		{"timer", "later", http.StatusBadRequest, logic.Command{}},
		{"boiler", "ON", http.StatusNotFound, logic.Command{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _, commands := newTestServer(t, 1)

			resp, cr := post(t, ts.URL+"/api/signals/"+tt.name, tt.body)
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status: got %d, want %d (%+v)", resp.StatusCode, tt.wantCode, cr)
			}
			if tt.wantCode != http.StatusAccepted {
				if cr.Error == "" {
					t.Error("expected an error message")
				}
				if len(commands) != 0 {
					t.Error("rejected request must not queue a command")
				}
				return
			}
			if got := <-commands; got != tt.want {
				t.Errorf("command: got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFullQueueReturnsUnavailable(t *testing.T) {
	ts, _, commands := newTestServer(t, 1)
	commands <- logic.Command{Signal: logic.WebButton, Action: logic.ActionToggle}

	resp, cr := post(t, ts.URL+"/api/signals/away", "ON")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", resp.StatusCode)
	}
	if cr.Error != "command queue full" {
		t.Errorf("error: got %q", cr.Error)
	}
	if len(commands) != 1 {
		t.Errorf("queue length changed: %d", len(commands))
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t, 1)
	e := logic.NewEngine()

	get := func() status.StatusJSON {
		resp, err := http.Get(ts.URL + "/index.json")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()
		var sj status.StatusJSON
		json.NewDecoder(resp.Body).Decode(&sj)
		return sj
	}

	tr.UpdateEngine(e)
	if got := get().Status.State; got != "OFF" {
		t.Errorf("expected OFF, got %s", got)
	}

	e.Apply(logic.Command{Signal: logic.WebButton, Action: logic.ActionToggle})
	tr.UpdateEngine(e)
	sj := get()
	if sj.Status.State != "ON" || sj.Status.Counts.On != 1 {
		t.Errorf("expected ON with one ON count, got %+v", sj.Status)
	}
}

func TestServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	tr := status.NewTracker(time.Now(), status.Config{Device: "lounge"})
	srv := New(ln.Addr().String(), tr, make(chan logic.Command, 1))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := <-done; !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Serve returned %v, want ErrServerClosed", err)
	}
}
