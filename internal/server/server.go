// Package server provides the demo-hosting HTTP server. It gates a static
// single-page application and a tree of pre-generated JSON fixtures behind
// an invite-code + password gate, scoping every read to the authenticated
// client and its selected data version.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/afero"

	"github.com/ratelens/demoserver/internal/registry"
	"github.com/ratelens/demoserver/internal/version"
)

// Server serves the gated demo site.
type Server struct {
	port     int
	log      *slog.Logger
	registry *registry.Registry
	resolver *version.Resolver
	dataFS   afero.Fs
	assets   fs.FS

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	started  bool
}

// Config holds server construction options.
type Config struct {
	// Port to listen on; 0 picks a free port.
	Port int

	// Registry is the loaded client registry. Required.
	Registry *registry.Registry

	// Resolver discovers data versions. Required.
	Resolver *version.Resolver

	// Assets is the SPA build to serve to authenticated clients. Required.
	Assets fs.FS

	// Log is the structured logger; defaults to slog.Default.
	Log *slog.Logger
}

// New creates a Server.
func New(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("client registry is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("version resolver is required")
	}
	if cfg.Assets == nil {
		return nil, errors.New("web assets are required")
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &Server{
		port:     cfg.Port,
		log:      log,
		registry: cfg.Registry,
		resolver: cfg.Resolver,
		dataFS:   cfg.Registry.Fs(),
		assets:   cfg.Assets,
	}, nil
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the fully-routed HTTP handler. Exposed so tests can drive
// the server through httptest without opening a socket.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.httpLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Credential endpoints work regardless of auth state.
	r.Post("/auth", s.handleAuth)
	r.Post("/logout", s.handleLogout)

	r.Route("/api", func(api chi.Router) {
		// Unauthenticated probe.
		api.Get("/status", s.handleStatus)

		api.Group(func(priv chi.Router) {
			priv.Use(s.requireSession)
			priv.Post("/reload", s.handleReload)
			priv.Post("/version", s.handleVersionSwitch)
			priv.Get("/health", s.handleHealth)
			priv.Get("/client", s.handleClient)
			priv.Get("/client/versions", s.handleClientVersions)
			s.registerContentRoutes(priv)
		})

		api.NotFound(s.apiNotFound)
		api.MethodNotAllowed(s.apiNotFound)
	})

	// Everything else is the SPA, or the gate pages when unauthenticated.
	r.NotFound(s.handleRoot)
	r.MethodNotAllowed(s.handleRoot)

	return r
}

// httpLogger logs each request through the structured logger.
func (s *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(s.log, next)
}

// Start starts the HTTP server. It blocks until ctx is cancelled or Stop is
// called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			s.log.Error("shutdown failed", "err", err)
		}
	}()

	s.log.Info("demo server listening", "addr", listener.Addr().String())

	err = s.server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.started = false
	return nil
}

// ListenAddr returns the actual address the server is listening on. Useful
// when port 0 is used to get an available port. Empty if not started.
func (s *Server) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
