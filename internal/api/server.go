package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/affiliate-ops/internal/config"
)

// Server is the management API server.
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer wires handlers into a router.
func NewServer(cfg config.ServerConfig, h *Handlers, health *HealthChecker, scores *ScoreHub) *Server {
	return &Server{
		config:  cfg,
		handler: SetupRoutes(h, health, scores, cfg.AllowedOrigins),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// score streams stay open, so no WriteTimeout
		IdleTimeout: 120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
