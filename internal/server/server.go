// package server contains the router, middleware and handlers for the driveclone HTTP backend
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/driveclone/internal/metrics"
	"github.com/desertthunder/driveclone/internal/services"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/desertthunder/driveclone/internal/store"
	"github.com/desertthunder/driveclone/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler groups related endpoints.
type Handler interface {
	http.Handler      // ServeHTTP handles requests for every route
	Routes() []string // Routes returns the patterns this handler serves, e.g. "GET /health"
}

// Router defines HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// ServerOpts configures a [Server].
type ServerOpts struct {
	Host         string
	Port         int
	Store        *store.Store
	Orchestrator *tasks.Orchestrator
	Drive        services.Drive // Nil disables the auth and quota endpoints
	Metrics      *metrics.Collector
	AutoRun      bool // Start the orchestrator after each accepted clone request
	FrontendURL  string
	Logger       *log.Logger
}

// Server is the driveclone HTTP backend.
type Server struct {
	opts     ServerOpts
	router   *BasicRouter
	handler  http.Handler
	sessions *Sessions
	logger   *log.Logger

	runCtx  context.Context
	stopRun context.CancelFunc
}

// New wires every route onto a fresh router.
func New(opts ServerOpts) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector()
		opts.Metrics.MustRegister()
	}

	runCtx, stop := context.WithCancel(context.Background())
	s := &Server{
		opts:     opts,
		router:   NewBasicRouter(),
		sessions: NewSessions(),
		logger:   shared.WithLogger(logger, "component", "server"),
		runCtx:   runCtx,
		stopRun:  stop,
	}

	s.router.Use(Recover(s.logger), Logging(s.logger))
	s.handler = s.router
	if opts.FrontendURL != "" {
		s.handler = CORS(opts.FrontendURL)(s.router)
	}

	jobs := &JobsHandler{
		store:        opts.Store,
		orchestrator: opts.Orchestrator,
		drive:        opts.Drive,
		sessions:     s.sessions,
		autoRun:      opts.AutoRun,
		runCtx:       runCtx,
		logger:       s.logger,
	}
	s.router.Handler(jobs)

	if opts.Drive != nil {
		s.router.Handler(&AuthHandler{
			drive:        opts.Drive,
			sessions:     s.sessions,
			store:        opts.Store,
			orchestrator: opts.Orchestrator,
			logger:       s.logger,
		})
	}

	s.router.Handle(http.MethodGet, "/metrics", opts.Metrics.Handler())
	s.router.Handle(http.MethodGet, "/health", http.HandlerFunc(s.health))
	s.logger.Debug("routes registered", "routes", s.router.Routes())
	return s
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, fmt.Sprint(s.opts.Port))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully and
// waits for background runs to stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", "http://"+srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.stopRun()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close cancels background runs and waits for them to return.
func (s *Server) Close() {
	s.stopRun()
	if s.opts.Orchestrator != nil {
		s.opts.Orchestrator.Wait()
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	busy := s.opts.Orchestrator != nil && s.opts.Orchestrator.Busy()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "busy": busy})
}
