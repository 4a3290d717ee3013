// ABOUTME: mDNS advertisement and browsing for audioscape monitors
// ABOUTME: Lets remote dashboards find the monitor endpoint on the local network
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	// ServiceType is the DNS-SD service advertised by a running installation
	ServiceType = "_audioscape._tcp"

	// MonitorPath is advertised in the TXT record
	MonitorPath = "/monitor"

	browseTimeout = 3 * time.Second
)

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	// Info is extra key=value TXT metadata
	Info map[string]string
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo

	// query and interval drive browsing; tests swap them out
	query    func(*mdns.QueryParam) error
	interval time.Duration
}

// ServerInfo describes a discovered installation
type ServerInfo struct {
	Name string
	Host string
	Port int
	Path string
}

// URL is the monitor WebSocket address of the installation
func (s *ServerInfo) URL() string {
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(s.Host, fmt.Sprint(s.Port)), s.Path)
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
		servers:  make(chan *ServerInfo, 10),
		query:    mdns.Query,
		interval: browseTimeout,
	}
}

// txtRecords renders the TXT metadata, path first
func (m *Manager) txtRecords() []string {
	var extra []string
	for k, v := range m.config.Info {
		extra = append(extra, k+"="+v)
	}
	sort.Strings(extra)
	return append([]string{"path=" + MonitorPath}, extra...)
}

// Advertise advertises the monitor endpoint until Stop
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
		m.txtRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for installations until Stop. Every query round reports
// the installations it finds on Servers, so the same installation shows up
// repeatedly.
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)

		go func() {
			for entry := range entries {
				server := serverInfo(entry)
				log.Printf("Discovered installation: %s at %s:%d", server.Name, server.Host, server.Port)

				select {
				case m.servers <- server:
				case <-m.ctx.Done():
					return
				}
			}
		}()

		params := &mdns.QueryParam{
			Service: ServiceType,
			Domain:  "local",
			Timeout: m.interval,
			Entries: entries,
		}

		if err := m.query(params); err != nil {
			log.Printf("mDNS query failed: %v", err)
		}
		close(entries)

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(m.interval):
		}
	}
}

// serverInfo extracts the monitor address from an mDNS entry
func serverInfo(entry *mdns.ServiceEntry) *ServerInfo {
	info := &ServerInfo{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Port: entry.Port,
		Path: MonitorPath,
	}
	if entry.AddrV4 != nil {
		info.Host = entry.AddrV4.String()
	} else if entry.AddrV6 != nil {
		info.Host = entry.AddrV6.String()
	} else {
		info.Host = entry.Host
	}
	for _, field := range entry.InfoFields {
		if path, ok := strings.CutPrefix(field, "path="); ok && path != "" {
			info.Path = path
		}
	}
	return info
}

// Servers returns the channel of discovered installations
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Collect gathers installations from servers until ctx ends or servers is
// closed. Each installation is listed once, sorted by name.
func Collect(ctx context.Context, servers <-chan *ServerInfo) []*ServerInfo {
	seen := make(map[string]*ServerInfo)
	for {
		select {
		case <-ctx.Done():
			return sortedServers(seen)
		case s, ok := <-servers:
			if !ok {
				return sortedServers(seen)
			}
			seen[s.Name+" "+s.URL()] = s
		}
	}
}

func sortedServers(seen map[string]*ServerInfo) []*ServerInfo {
	list := make([]*ServerInfo, 0, len(seen))
	for _, s := range seen {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].URL() < list[j].URL()
	})
	return list
}

// Stop stops advertising and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IPv4 addresses
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
