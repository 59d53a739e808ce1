// Package api exposes the artifact pipeline over HTTP.
//
// This is the command surface between a page-side client (browser
// extension, bookmarklet, curl) and the packaging service. Every
// endpoint answers with the same envelope: {success, data?, error?}.
//
//	POST /api/artifacts/download         extract + package a conversation export
//	POST /api/artifacts/download-single  package one artifact
//	POST /api/artifacts/run              execute a code artifact
//	POST /api/artifacts/preview          render artifact content to HTML
//	GET  /api/settings                   current settings value
//	PUT  /api/settings                   merge + persist a settings patch
//	GET  /health                         liveness probe
//	GET  /ready                          readiness probe (pings artifact cache)
//
// File structure:
//   - server.go: server setup and lifecycle
//   - middleware.go: recovery, logging, CORS
//   - response.go: envelope helpers
//   - artifacts.go: pipeline endpoints
//   - settings.go: settings value + endpoints
//   - health.go: probes
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/koopa0/artivault/internal/artifact"
	"github.com/koopa0/artivault/internal/download"
	"github.com/koopa0/artivault/internal/log"
	"github.com/koopa0/artivault/internal/pipeline"
	"github.com/koopa0/artivault/internal/preview"
	"github.com/koopa0/artivault/internal/sandbox"
)

// Server timeouts. ReadHeaderTimeout defends against slowloris-style
// connections.
const (
	ShutdownTimeout   = 10 * time.Second
	ReadHeaderTimeout = 10 * time.Second
	ReadTimeout       = 30 * time.Second
	WriteTimeout      = 60 * time.Second
	IdleTimeout       = 120 * time.Second
)

// ServerConfig collects the server's injected dependencies.
type ServerConfig struct {
	Logger   log.Logger
	Pipeline *pipeline.Pipeline
	Runner   *sandbox.Runner
	Renderer *preview.Renderer
	Trigger  download.Trigger
	Store    *artifact.Store // optional, enables deferred stitching and readiness
	Settings *Settings

	CORSOrigins []string
}

// Server is the HTTP server for the artifact service.
type Server struct {
	mux         *http.ServeMux
	logger      log.Logger
	corsOrigins []string
}

// NewServer creates a server with all routes registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.Settings == nil {
		return nil, errors.New("settings are required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:         mux,
		logger:      cfg.Logger,
		corsOrigins: cfg.CORSOrigins,
	}

	artifacts := &ArtifactHandler{
		pipeline: cfg.Pipeline,
		runner:   cfg.Runner,
		renderer: cfg.Renderer,
		trigger:  cfg.Trigger,
		store:    cfg.Store,
		settings: cfg.Settings,
		logger:   cfg.Logger.With("component", "artifacts"),
	}
	artifacts.RegisterRoutes(mux)

	settings := &SettingsHandler{
		settings: cfg.Settings,
		logger:   cfg.Logger.With("component", "settings"),
	}
	settings.RegisterRoutes(mux)

	health := &HealthHandler{
		store:  cfg.Store,
		logger: cfg.Logger.With("component", "health"),
	}
	health.RegisterRoutes(mux)

	return s, nil
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery -> logging -> CORS -> routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		corsMiddleware(s.corsOrigins),
	)
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
