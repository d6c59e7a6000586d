/*
main.go - Forecast API server

PURPOSE:
  Runs the HTTP API over a SQLite store of schedule definitions and
  evaluation runs.

STARTUP:
  config.Load (environment, optional .env) -> flags -> logger ->
  sqlite.New -> api.NewRouter -> ListenAndServe

FLAGS (override the environment):
  -port      FORECAST_PORT, default 8080
  -db        FORECAST_DB_PATH, ":memory:" keeps everything in process
  -examples  FORECAST_EXAMPLES_DIR, extra example definitions

SHUTDOWN:
  SIGINT or SIGTERM stops the listener, drains in-flight requests for up
  to 30s, then closes the database.

SEE ALSO:
  - api/server.go: routes
  - config/config.go: environment
  - store/sqlite/sqlite.go: persistence
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warp/forecast-engine/api"
	"github.com/warp/forecast-engine/config"
	"github.com/warp/forecast-engine/logger"
	"github.com/warp/forecast-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "SQLite database path")
	flag.StringVar(&cfg.ExamplesDir, "examples", cfg.ExamplesDir, "extra example definitions directory")
	flag.Parse()

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	if cfg.DatabasePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
			log.Fatal().Err(err).Msg("Failed to create database directory")
		}
	}

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer store.Close()

	opts := []api.Option{api.WithLogger(log)}
	if cfg.ExamplesDir != "" {
		opts = append(opts, api.WithExamplesDir(cfg.ExamplesDir))
	}
	router := api.NewRouter(api.NewHandler(store, opts...))

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("db", cfg.DatabasePath).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
