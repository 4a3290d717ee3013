// ABOUTME: HTTP server exposing the monitor WebSocket and health endpoint
// ABOUTME: Streams hub frames as JSON text messages to every connected client
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/audioscape/audioscape/internal/version"
	"github.com/gorilla/websocket"
)

const (
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// Config holds monitor server configuration
type Config struct {
	// Port to listen on; 0 picks a free port
	Port  int
	Debug bool
}

// Health is the body served by /healthz
type Health struct {
	Status   string `json:"status"`
	Product  string `json:"product"`
	Version  string `json:"version"`
	Playing  bool   `json:"playing"`
	Sounds   int    `json:"sounds"`
	Clients  int    `json:"clients"`
	Sequence uint64 `json:"seq"`
}

// Server serves the hub over HTTP
type Server struct {
	config   Config
	hub      *Hub
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	httpServer *http.Server
	listener   net.Listener

	connsMu sync.Mutex
	conns   map[*websocket.Conn]struct{}

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewServer creates a monitor server for hub
func NewServer(config Config, hub *Hub) *Server {
	s := &Server{
		config: config,
		hub:    hub,
		mux:    http.NewServeMux(),
		conns:  make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			// Monitoring is read-only and meant for the local network
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.mux.HandleFunc("/monitor", s.handleMonitor)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

// Handler returns the HTTP handler serving both endpoints
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured port and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.mux}

	log.Printf("Monitor listening on %s", ln.Addr())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Monitor server error: %v", err)
		}
	}()
	return nil
}

// Port returns the port actually bound by Start
func (s *Server) Port() int {
	if s.listener == nil {
		return s.config.Port
	}
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return s.config.Port
}

// Stop shuts the server down, drops monitor clients and waits for their
// writers to finish
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				log.Printf("Monitor shutdown error: %v", err)
			}
		}

		// Hijacked connections are not closed by Shutdown
		s.connsMu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.connsMu.Unlock()
	})
	s.wg.Wait()
}

func (s *Server) track(conn *websocket.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	latest := s.hub.Latest()
	health := Health{
		Status:   "ok",
		Product:  version.Product,
		Version:  version.Version,
		Playing:  latest.Snapshot.Playing,
		Sounds:   len(latest.Snapshot.Sounds),
		Clients:  s.hub.Subscribers(),
		Sequence: latest.Sequence,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		log.Printf("Error writing health: %v", err)
	}
}

func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	if s.config.Debug {
		log.Printf("[DEBUG] Monitor client connected from %s", r.RemoteAddr)
	}

	s.track(conn)
	frames, cancel := s.hub.Subscribe()
	closed := make(chan struct{})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.untrack(conn)
		defer conn.Close()
		defer cancel()
		s.clientWriter(conn, frames, closed)
	}()

	// Clients never send anything meaningful; reading detects disconnects
	// and services control frames.
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("Monitor client error: %v", err)
				}
				return
			}
		}
	}()
}

// clientWriter sends frames until the client or the hub goes away
func (s *Server) clientWriter(conn *websocket.Conn, frames <-chan Frame, closed <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "monitor stopped"),
					time.Now().Add(writeDeadline))
				return
			}
			data, err := json.Marshal(frame)
			if err != nil {
				log.Printf("Error marshaling frame: %v", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing frame: %v", err)
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}

		case <-closed:
			return
		}
	}
}
