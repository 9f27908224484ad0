// Package web serves the dashboard: a small HTTP server with a WebSocket
// stream of bot events for live QR pairing, status, and message activity.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edgard/zapbot/internal/config"
	"github.com/edgard/zapbot/internal/events"
)

//go:embed static
var staticFS embed.FS

const (
	writeWait        = 10 * time.Second
	pingInterval     = 30 * time.Second
	shutdownTimeout  = 5 * time.Second
	readLimitBytes   = 512
	pongWaitInterval = pingInterval + writeWait
)

// StatusFunc supplies the current bot status for the status endpoint.
type StatusFunc func(ctx context.Context) any

// Server is the dashboard HTTP server.
type Server struct {
	addr     string
	log      *slog.Logger
	broker   *events.Broker
	status   StatusFunc
	upgrader websocket.Upgrader
}

// NewServer creates the dashboard server. It does not listen until Run.
func NewServer(cfg config.WebConfig, broker *events.Broker, status StatusFunc, log *slog.Logger) *Server {
	return &Server{
		addr:   cfg.Addr,
		log:    log.With("component", "web"),
		broker: broker,
		status: status,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard binds to localhost; same-origin checks would
			// reject the common host:port variations for no gain.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler builds the dashboard's HTTP routes.
func (s *Server) Handler() (http.Handler, error) {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded assets: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(static)))
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/health", s.handleHealth)
	return mux, nil
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Dashboard listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("Dashboard shutdown was not clean", "error", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dashboard server failed: %w", err)
		}
		return nil
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status(r.Context())); err != nil {
		s.log.Debug("Failed to write status response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleWS upgrades the connection and streams broker events to the
// client. The most recent event is replayed first so a fresh page shows
// the current QR code or state immediately.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	ch, cancel := s.broker.Subscribe()
	defer cancel()

	s.log.Debug("Dashboard client connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(readLimitBytes)
		_ = conn.SetReadDeadline(time.Now().Add(pongWaitInterval))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWaitInterval))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if last, ok := s.broker.Last(); ok {
		if err := s.writeEvent(conn, last); err != nil {
			_ = conn.Close()
			return
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case <-done:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := s.writeEvent(conn, evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, evt events.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(evt)
}
