// ABOUTME: mDNS service discovery for recorder control servers
// ABOUTME: Handles both advertisement (serve) and browsing (discover command)
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"go.uber.org/zap"
)

// ServiceType is the mDNS service type of a recorder control server
const ServiceType = "_resonate-recorder._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int

	// Info is published as TXT records
	Info []string
}

// Manager handles mDNS operations
type Manager struct {
	config Config
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	server *mdns.Server
}

// RecorderInfo describes a discovered recorder
type RecorderInfo struct {
	Name string
	Host string
	Port int
	Info []string
}

// Address returns host:port
func (r RecorderInfo) Address() string {
	return net.JoinHostPort(r.Host, fmt.Sprint(r.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// TXTRecords returns the TXT records advertised for this recorder
func (m *Manager) TXTRecords() []string {
	return append([]string{"path=/api"}, m.config.Info...)
}

// Advertise advertises the control server via mDNS until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.TXTRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}
	m.server = server

	m.logger.Info("advertising mDNS service",
		zap.String("name", m.config.ServiceName),
		zap.String("type", ServiceType),
		zap.Int("port", m.config.Port))

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse queries for recorders for the given duration
func (m *Manager) Browse(ctx context.Context, timeout time.Duration) ([]RecorderInfo, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	var found []RecorderInfo

	done := make(chan struct{})
	go func() {
		defer close(done)
		seen := make(map[string]bool)
		for entry := range entries {
			if !strings.Contains(entry.Name, ServiceType) || seen[entry.Name] {
				continue
			}
			seen[entry.Name] = true

			info := RecorderInfo{
				Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
				Port: entry.Port,
				Info: entry.InfoFields,
			}
			if entry.AddrV4 != nil {
				info.Host = entry.AddrV4.String()
			} else {
				info.Host = entry.Host
			}

			m.logger.Debug("discovered recorder", zap.String("name", info.Name), zap.String("address", info.Address()))
			found = append(found, info)
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Timeout = timeout
	params.Entries = entries
	params.DisableIPv6 = true

	err := mdns.QueryContext(ctx, params)
	close(entries)
	<-done

	if err != nil {
		return found, fmt.Errorf("mdns query failed: %w", err)
	}
	return found, nil
}

// Stop stops advertising
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
