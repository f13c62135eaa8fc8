// Package discovery advertises the status page on the local network over
// mDNS so phones and home dashboards can find the switch without an IP.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/enbility/zeroconf/v3"

	"github.com/sweeney/green-switch/internal/config"
)

const (
	// ServiceType is the DNS-SD service type of the status page.
	ServiceType = "_http._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63
)

// ErrNoPort is returned when the HTTP address has no usable port.
var ErrNoPort = errors.New("discovery: no port in address")

// InstanceName returns the advertised instance name for device.
func InstanceName(device string) string {
	name := "Green Switch " + device
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// TXTRecords returns the TXT key/value strings advertised with the service.
func TXTRecords(device, version string) []string {
	return []string{
		"device=" + device,
		"version=" + version,
		"path=/",
		"status=/index.json",
		"api=/api/signals",
	}
}

// PortFromAddr extracts the TCP port from a listen address such as ":8080".
func PortFromAddr(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNoPort, addr)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("%w: %s", ErrNoPort, addr)
	}
	return port, nil
}

// Advertiser registers the status page with zeroconf.
type Advertiser struct {
	cfg config.DiscoveryConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an advertiser. Nothing is announced until Start.
func NewAdvertiser(cfg config.DiscoveryConfig) *Advertiser {
	return &Advertiser{cfg: cfg}
}

// interfaces returns the network interfaces to advertise on.
// Returns nil to use all interfaces.
func (a *Advertiser) interfaces() []net.Interface {
	if a.cfg.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.cfg.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Start announces the service, replacing any previous announcement.
func (a *Advertiser) Start(device, version, httpAddr string) error {
	port, err := PortFromAddr(httpAddr)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	server, err := zeroconf.Register(
		InstanceName(device),
		ServiceType,
		Domain,
		port,
		TXTRecords(device, version),
		a.interfaces(),
	)
	if err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceType, err)
	}
	a.server = server
	return nil
}

// Stop withdraws the announcement. It is safe to call more than once.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}
