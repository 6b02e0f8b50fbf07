// Package server hosts the webapp's HTTP API: relay configuration, presets,
// backups, restart, and a WebSocket status stream.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/xmproxy/webapp/internal/config"
	"github.com/xmproxy/webapp/internal/eventbus"
	"github.com/xmproxy/webapp/internal/xmppconf"
)

// APIServer wires the config store, control client, status monitor, and
// restart orchestrator behind the HTTP surface.
type APIServer struct {
	store     *xmppconf.Store
	control   ControlClient
	monitor   StatusProvider
	restarter Restarter
	bus       *eventbus.Bus
	settings  config.Settings

	hub        *StatusHub
	httpServer *http.Server
	startTime  time.Time
}

// NewAPIServer creates the API server. All dependencies are required except
// bus, which may be nil when nothing consumes events.
func NewAPIServer(store *xmppconf.Store, control ControlClient, monitor StatusProvider, restarter Restarter, bus *eventbus.Bus, settings config.Settings) *APIServer {
	return &APIServer{
		store:     store,
		control:   control,
		monitor:   monitor,
		restarter: restarter,
		bus:       bus,
		settings:  settings,
		hub:       NewStatusHub(monitor),
		startTime: time.Now(),
	}
}

// Handler builds the route table. Exposed separately from Start so tests can
// drive the full surface through httptest.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/presets", s.handlePresets)
	mux.HandleFunc("/api/presets/", s.handlePresetByName)
	mux.HandleFunc("/api/backups", s.handleBackups)
	mux.HandleFunc("/api/backups/", s.handleBackupRestore)
	mux.HandleFunc("/api/service/restart", s.handleServiceRestart)
	mux.HandleFunc("/api/connection/connect", s.handleConnect)
	mux.HandleFunc("/api/connection/disconnect", s.handleDisconnect)
	mux.HandleFunc("/ws/status", s.hub.HandleWebSocket)
	return mux
}

// Start serves the API until the listener fails or Shutdown is called. The
// WebSocket hub runs for the lifetime of ctx.
func (s *APIServer) Start(ctx context.Context) error {
	go s.hub.Run(ctx, s.bus)

	address := net.JoinHostPort(s.settings.Host, strconv.Itoa(s.settings.Port))
	s.httpServer = &http.Server{
		Addr:    address,
		Handler: s.Handler(),
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *APIServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
