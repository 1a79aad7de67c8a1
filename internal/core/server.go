// Package core provides the API chassis for the bedsight service. It builds
// the chi router and enforces cross-cutting concerns -- security, logging,
// correlation, and error handling -- before requests reach domain handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bedsight/internal/config"
	"bedsight/internal/sites"
)

// Server encapsulates all dependencies for the bedsight API, allowing for
// easy injection during testing and distinct configuration per environment.
type Server struct {
	Config    *config.Config
	Sites     *sites.Service
	Logger    *slog.Logger
	Validator *Validator

	// V1RouteRegistrars are populated by the application entry point before
	// MountRoutes. The indirection avoids import cycles between core and the
	// handler packages.
	V1RouteRegistrars []func(chi.Router)

	// HealthProbes are checked concurrently by the /health endpoint.
	HealthProbes []HealthProbe

	router *chi.Mux
}

// NewServer initializes dependencies, sets up the router, and prepares the
// server for route mounting. It performs a fail-fast check on critical
// dependencies; the caller mounts routes after construction.
func NewServer(cfg *config.Config, svc *sites.Service, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if svc == nil {
		return nil, fmt.Errorf("sites service must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Sites:     svc,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")
	s.Logger.Info("server shutdown complete")
	return nil
}
