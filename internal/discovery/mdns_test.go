// ABOUTME: Tests for mDNS discovery
// ABOUTME: Covers manager lifecycle, TXT records and entry parsing
package discovery

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager(Config{
		ServiceName: "Gallery",
		Port:        8930,
	})
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	if mgr.servers == nil {
		t.Error("servers channel should not be nil")
	}

	mgr.Stop()
	select {
	case <-mgr.ctx.Done():
	default:
		t.Error("expected context cancelled after Stop")
	}
}

func TestTXTRecords(t *testing.T) {
	mgr := NewManager(Config{Info: map[string]string{"version": "1.2.3"}})
	defer mgr.Stop()

	txt := mgr.txtRecords()
	if len(txt) != 2 {
		t.Fatalf("expected 2 records, got %v", txt)
	}
	if txt[0] != "path=/monitor" {
		t.Errorf("expected path first, got %q", txt[0])
	}
	if txt[1] != "version=1.2.3" {
		t.Errorf("expected version record, got %q", txt[1])
	}
}

func TestServerInfo(t *testing.T) {
	tests := []struct {
		name     string
		entry    *mdns.ServiceEntry
		wantHost string
		wantPath string
	}{
		{
			name:     "ipv4 with path",
			entry:    &mdns.ServiceEntry{Name: "a", Port: 1, AddrV4: net.ParseIP("10.0.0.5"), InfoFields: []string{"path=/custom"}},
			wantHost: "10.0.0.5",
			wantPath: "/custom",
		},
		{
			name:     "ipv6 default path",
			entry:    &mdns.ServiceEntry{Name: "b", Port: 2, AddrV6: net.ParseIP("fe80::1")},
			wantHost: "fe80::1",
			wantPath: MonitorPath,
		},
		{
			name:     "host fallback",
			entry:    &mdns.ServiceEntry{Name: "c", Port: 3, Host: "gallery.local."},
			wantHost: "gallery.local.",
			wantPath: MonitorPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := serverInfo(tt.entry)
			if info.Host != tt.wantHost {
				t.Errorf("expected host %q, got %q", tt.wantHost, info.Host)
			}
			if info.Path != tt.wantPath {
				t.Errorf("expected path %q, got %q", tt.wantPath, info.Path)
			}
			if info.Port != tt.entry.Port {
				t.Errorf("expected port %d, got %d", tt.entry.Port, info.Port)
			}
		})
	}
}

func TestServerInfoURL(t *testing.T) {
	info := &ServerInfo{Host: "10.0.0.5", Port: 8930, Path: "/monitor"}
	if got := info.URL(); got != "ws://10.0.0.5:8930/monitor" {
		t.Errorf("unexpected URL %q", got)
	}

	v6 := &ServerInfo{Host: "fe80::1", Port: 80, Path: "/monitor"}
	if got := v6.URL(); got != "ws://[fe80::1]:80/monitor" {
		t.Errorf("unexpected URL %q", got)
	}
}

func TestBrowseReportsInstallations(t *testing.T) {
	mgr := NewManager(Config{})
	mgr.interval = 10 * time.Millisecond

	var queries atomic.Int32
	var wrongService atomic.Bool
	mgr.query = func(p *mdns.QueryParam) error {
		queries.Add(1)
		if p.Service != ServiceType {
			wrongService.Store(true)
		}
		p.Entries <- &mdns.ServiceEntry{Name: "south._audioscape._tcp.local.", Port: 8930, AddrV4: net.ParseIP("10.0.0.2")}
		p.Entries <- &mdns.ServiceEntry{Name: "north._audioscape._tcp.local.", Port: 8931, AddrV4: net.ParseIP("10.0.0.1")}
		return nil
	}

	if err := mgr.Browse(); err != nil {
		t.Fatalf("browse failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	servers := Collect(ctx, mgr.Servers())
	mgr.Stop()

	if wrongService.Load() {
		t.Errorf("expected queries for %s", ServiceType)
	}
	if queries.Load() < 2 {
		t.Errorf("expected repeated query rounds, got %d", queries.Load())
	}
	if len(servers) != 2 {
		t.Fatalf("expected 2 distinct installations, got %d", len(servers))
	}
	if servers[0].Name != "north" || servers[1].Name != "south" {
		t.Errorf("expected installations sorted by name, got %s, %s", servers[0].Name, servers[1].Name)
	}
	if got := servers[0].URL(); got != "ws://10.0.0.1:8931/monitor" {
		t.Errorf("unexpected URL %q", got)
	}
}

func TestCollectStopsWhenServersClose(t *testing.T) {
	servers := make(chan *ServerInfo, 3)
	servers <- &ServerInfo{Name: "b", Host: "10.0.0.2", Port: 1, Path: MonitorPath}
	servers <- &ServerInfo{Name: "a", Host: "10.0.0.1", Port: 1, Path: MonitorPath}
	servers <- &ServerInfo{Name: "b", Host: "10.0.0.2", Port: 1, Path: MonitorPath}
	close(servers)

	list := Collect(context.Background(), servers)
	if len(list) != 2 || list[0].Name != "a" || list[1].Name != "b" {
		t.Errorf("unexpected installations %+v", list)
	}
}
