package discovery

import (
	"errors"
	"strings"
	"testing"

	"github.com/sweeney/green-switch/internal/config"
)

func TestInstanceName(t *testing.T) {
	if got := InstanceName("lounge"); got != "Green Switch lounge" {
		t.Errorf("got %q", got)
	}

	long := InstanceName(strings.Repeat("x", 100))
	if len(long) != MaxInstanceNameLen {
		t.Errorf("expected truncation to %d, got %d", MaxInstanceNameLen, len(long))
	}
}

func TestTXTRecords(t *testing.T) {
	txt := TXTRecords("lounge", "1.2.0")
	want := map[string]bool{
		"device=lounge":      true,
		"version=1.2.0":      true,
		"path=/":             true,
		"status=/index.json": true,
		"api=/api/signals":   true,
	}
	if len(txt) != len(want) {
		t.Fatalf("expected %d records, got %v", len(want), txt)
	}
	for _, r := range txt {
		if !want[r] {
			t.Errorf("unexpected record %q", r)
		}
	}
}

func TestPortFromAddr(t *testing.T) {
	tests := []struct {
		addr    string
		want    int
		wantErr bool
	}{
		{":8080", 8080, false},
		{"0.0.0.0:80", 80, false},
		{"[::]:9000", 9000, false},
		{"8080", 0, true},
		{":http", 0, true},
		{":0", 0, true},
		{":70000", 0, true},
	}
	for _, tt := range tests {
		got, err := PortFromAddr(tt.addr)
		if tt.wantErr {
			if !errors.Is(err, ErrNoPort) {
				t.Errorf("%q: expected ErrNoPort, got %v", tt.addr, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: got %d, %v; want %d", tt.addr, got, err, tt.want)
		}
	}
}

func TestStartRejectsBadAddr(t *testing.T) {
	a := NewAdvertiser(config.DiscoveryConfig{Enabled: true})
	if err := a.Start("lounge", "dev", "nope"); !errors.Is(err, ErrNoPort) {
		t.Errorf("expected ErrNoPort, got %v", err)
	}
	a.Stop()
	a.Stop()
}

func TestInterfacesDefaultsToAll(t *testing.T) {
	a := NewAdvertiser(config.DiscoveryConfig{})
	if a.interfaces() != nil {
		t.Error("empty interface name should advertise on all interfaces")
	}

	a = NewAdvertiser(config.DiscoveryConfig{Interface: "does-not-exist0"})
	if a.interfaces() != nil {
		t.Error("unknown interface should fall back to all interfaces")
	}
}
