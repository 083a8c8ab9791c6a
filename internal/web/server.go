package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/faceverify/internal/config"
	"github.com/kozaktomas/faceverify/internal/logging"
	"github.com/kozaktomas/faceverify/internal/web/handlers"
	"github.com/kozaktomas/faceverify/internal/web/middleware"
)

// OutputsPrefix is the URL path under which local storage is served.
const OutputsPrefix = "/output_images"

// Server represents the web server
type Server struct {
	config     config.WebConfig
	router     *chi.Mux
	httpServer *http.Server
	runner     handlers.Runner
	outputsDir string
}

// NewServer creates a new web server. outputsDir is the local storage root to
// serve under OutputsPrefix, or "" when storage isn't local.
func NewServer(cfg config.WebConfig, runner handlers.Runner, outputsDir string) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:     cfg,
		router:     r,
		runner:     runner,
		outputsDir: outputsDir,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(2 * time.Minute))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute, // pipeline runs inside the request
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	logging.Logger().Infof("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Logger().Info("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
