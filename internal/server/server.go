// Package server defines the core Server struct that composes the
// app's main dependencies.
//
// It owns the lifecycle of:
//   - configuration
//   - logger
//   - database pool
//   - http.Server
//
// It provides constructors and start/shutdown logic to run the
// application cleanly.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/p2p-rigid/api-test/internal/config"
	"github.com/p2p-rigid/api-test/internal/database"
)

// Server is the application container that holds shared resources.
// It is not the HTTP server itself; it holds the config, the logger,
// the database pool, and an internal *http.Server used to serve requests.
type Server struct {
	Config *config.Config
	Logger *zerolog.Logger
	DB     *database.Database

	httpServer *http.Server
}

// New constructs a Server and initializes core dependencies.
// It does NOT start the HTTP server; that is done in SetupHTTPServer + Start.
func New(cfg *config.Config, logger *zerolog.Logger) (*Server, error) {
	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Server{
		Config: cfg,
		Logger: logger,
		DB:     db,
	}, nil
}

// SetupHTTPServer wires the Echo router into an http.Server configured
// from the server config block.
func (s *Server) SetupHTTPServer(e *echo.Echo) {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      e,
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start begins serving HTTP requests. It blocks until the server stops.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("http server is not set up, call SetupHTTPServer first")
	}

	s.Logger.Info().Str("port", s.Config.Server.Port).Msg("starting http server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// Shutdown gracefully stops the HTTP server and closes the database
// pool. In-flight requests get until ctx deadline to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info().Msg("shutting down server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			return fmt.Errorf("database close: %w", err)
		}
	}

	return nil
}
