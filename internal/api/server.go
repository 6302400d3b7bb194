// Package api provides the HTTP REST API and WebSocket server for kioskd.
//
// It exposes the kiosk's status, settings and controls to the embedded
// panel UI and to anything else on the LAN. Every mutating route builds a
// validated command and enqueues it on the shared command queue; the
// worker supervisor stays the single execution path.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/infrastructure/config"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/logbook"
	"kioskd/internal/settings"
	"kioskd/internal/state"
	"kioskd/internal/worker"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// LogSource serves the recent-entries ring to the logs endpoints.
// Satisfied by *logbook.Aggregator.
type LogSource interface {
	Recent(category string) []bus.LogEntry
	ClearRecent()
}

// WorkerReporter reports worker lifecycle states for the status endpoint.
// Satisfied by *worker.Supervisor.
type WorkerReporter interface {
	Statuses() []worker.WorkerStatus
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.WebConfig
	Logger   *logging.Logger
	Store    *state.Store
	Commands *bus.Queue[bus.Command]
	Weather  *bus.Queue[bus.WeatherUpdate]
	Reload   *bus.Queue[bus.ReloadNotice]
	Settings *settings.Manager
	Recorder *logbook.Recorder
	Logs     LogSource
	Workers  WorkerReporter
	Version  string
}

// Server is the HTTP control surface for kioskd.
//
// It manages the HTTP listener, routes, middleware, WebSocket hub and the
// event pump that turns queue traffic into WebSocket broadcasts. The
// server is created with New() and started with Start().
type Server struct {
	cfg      config.WebConfig
	logger   *logging.Logger
	store    *state.Store
	commands *bus.Queue[bus.Command]
	weather  *bus.Queue[bus.WeatherUpdate]
	reload   *bus.Queue[bus.ReloadNotice]
	settings *settings.Manager
	recorder *logbook.Recorder
	logs     LogSource
	workers  WorkerReporter
	version  string
	started  time.Time

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if deps.Commands == nil {
		return nil, fmt.Errorf("command queue is required")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("settings manager is required")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if deps.Logs == nil {
		return nil, fmt.Errorf("log source is required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger.With("component", "api"),
		store:    deps.Store,
		commands: deps.Commands,
		weather:  deps.Weather,
		reload:   deps.Reload,
		settings: deps.Settings,
		recorder: deps.Recorder,
		logs:     deps.Logs,
		workers:  deps.Workers,
		version:  deps.Version,
		started:  time.Now(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub and event pump, and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.cfg.WS, s.logger)
	go s.hub.Run(srvCtx)

	s.startEventPump(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, event pump)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
