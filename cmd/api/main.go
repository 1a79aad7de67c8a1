// Package main is the entry point for the bedsight API server.
//
// It loads the configuration and criteria profile, builds the feature source
// (HTTP providers when endpoints are configured, the deterministic synthetic
// terrain model otherwise), wires the sites service into the HTTP chassis,
// and serves until interrupted.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"bedsight/internal/api/handlers"
	"bedsight/internal/config"
	"bedsight/internal/core"
	"bedsight/internal/features"
	"bedsight/internal/sites"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, profile, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("bedsight API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"profile", profile.Name,
		"port", cfg.Server.Port,
	)

	source := buildFeatureSource(cfg, logger)
	service := sites.NewService(source, profile, logger)

	srv, err := core.NewServer(cfg, service, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	siteHandler := handlers.NewSiteHandler(service, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		siteHandler.RegisterRoutes(r)
	})

	srv.HealthProbes = append(srv.HealthProbes, core.ProbeFunc{
		ProbeName: "feature_source",
		Fn:        service.Healthy,
	})

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// buildFeatureSource selects the feature sampling backend. When a terrain
// provider URL is configured, the remote trio is used; otherwise the service
// falls back to the deterministic synthetic terrain model, which keeps local
// development and demos provider-free.
func buildFeatureSource(cfg *config.Config, logger *slog.Logger) features.Source {
	if cfg.Providers.TerrainURL != "" {
		logger.Info("using remote feature providers",
			"terrain", cfg.Providers.TerrainURL,
			"weather_configured", cfg.Providers.WeatherURL != "",
			"roads_configured", cfg.Providers.RoadsURL != "",
		)
		return features.NewHTTPSource(cfg.Providers, logger)
	}

	logger.Info("no terrain provider configured; using synthetic terrain model")
	return features.NewStaticSource()
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
