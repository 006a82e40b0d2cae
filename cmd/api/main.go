package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p2p-rigid/api-test/internal/config"
	"github.com/p2p-rigid/api-test/internal/database"
	"github.com/p2p-rigid/api-test/internal/handler"
	"github.com/p2p-rigid/api-test/internal/logger"
	"github.com/p2p-rigid/api-test/internal/middleware"
	"github.com/p2p-rigid/api-test/internal/repository"
	"github.com/p2p-rigid/api-test/internal/router"
	"github.com/p2p-rigid/api-test/internal/server"
	"github.com/p2p-rigid/api-test/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger exists yet at this point.
		panic(err)
	}

	log := logger.New(cfg)

	ctx := context.Background()
	if err := database.Migrate(ctx, log, cfg); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}

	repos := repository.NewRepositories(srv)
	services := service.NewServices(srv, repos)
	handlers := handler.NewHandlers(srv, services)
	middlewares := middleware.NewMiddlewares(srv)

	e := router.Setup(handlers, middlewares)
	srv.SetupHTTPServer(e)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("server stopped")
}
