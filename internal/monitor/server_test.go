// ABOUTME: Tests for the monitor HTTP endpoints
// ABOUTME: Dials the WebSocket endpoint through httptest
package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/audioscape/audioscape/internal/version"
	"github.com/audioscape/audioscape/pkg/soundscape"
	"github.com/gorilla/websocket"
)

func TestHealthz(t *testing.T) {
	hub := NewHub()
	hub.PublishSnapshot(soundscape.Snapshot{
		Playing: true,
		Sounds:  []soundscape.SoundState{{ID: 1}, {ID: 2}},
	})

	srv := httptest.NewServer(NewServer(Config{}, hub).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode health: %v", err)
	}
	if health.Status != "ok" || health.Version != version.Version {
		t.Errorf("unexpected health %+v", health)
	}
	if !health.Playing || health.Sounds != 2 {
		t.Errorf("expected playing with 2 sounds, got %+v", health)
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/monitor"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("expected text frame, got %d", kind)
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("invalid frame %s: %v", data, err)
	}
	return f
}

func TestMonitorStreamsFrames(t *testing.T) {
	hub := NewHub()
	hub.PublishSnapshot(soundscape.Snapshot{Sources: 5})

	server := NewServer(Config{}, hub)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	first := readFrame(t, conn)
	if first.Snapshot.Sources != 5 {
		t.Errorf("expected the current frame on connect, got %+v", first.Snapshot)
	}

	hub.PublishSnapshot(soundscape.Snapshot{Sources: 6, Playing: true})
	next := readFrame(t, conn)
	if next.Snapshot.Sources != 6 || !next.Snapshot.Playing {
		t.Errorf("expected the published frame, got %+v", next.Snapshot)
	}
	if next.Sequence <= first.Sequence {
		t.Errorf("expected increasing sequence, got %d after %d", next.Sequence, first.Sequence)
	}
}

func TestMonitorClosesWithHub(t *testing.T) {
	hub := NewHub()
	server := NewServer(Config{}, hub)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected going-away close, got %v", err)
	}
	server.Stop()
}

func TestStartAndStop(t *testing.T) {
	hub := NewHub()
	server := NewServer(Config{Port: 0}, hub)
	if err := server.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if server.Port() == 0 {
		t.Error("expected a bound port")
	}
	server.Stop()
}
