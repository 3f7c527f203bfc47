/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the wholesale engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the zap logger
  3. Initialize SQLite snapshot store
  4. Create the warehouse with metrics and restore the latest snapshot
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: HTTP_PORT or 8080)
  -db      SQLite database path (default: DB_PATH or warehouse.db)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Save a "shutdown" snapshot
  4. Close database connection

ENVIRONMENT:
  APP_ENV        development | production (logger flavour)
  HTTP_PORT      listen port
  DB_PATH        SQLite database path
  CORS_ORIGINS   comma-separated allowed origins

SEE ALSO:
  - config/config.go: Environment keys and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Snapshot store
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/wholesale-engine/api"
	"github.com/warp/wholesale-engine/config"
	"github.com/warp/wholesale-engine/generic"
	"github.com/warp/wholesale-engine/metrics"
	"github.com/warp/wholesale-engine/store/sqlite"
	"github.com/warp/wholesale-engine/warehouse"
)

func main() {
	cfg := config.Load()

	// Flags override the environment
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	logger, err := config.NewLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("path", *dbPath), zap.Error(err))
	}
	defer store.Close()

	m := metrics.New()
	w := warehouse.New(warehouse.WithLogger(logger), warehouse.WithRecorder(m))
	handler := api.NewHandler(w, store, logger)

	// Pick up where the last run left off
	ctx := context.Background()
	if rec, err := handler.RestoreLatest(ctx); err != nil {
		if !errors.Is(err, generic.ErrMissingFileAssociation) {
			logger.Fatal("failed to restore snapshot", zap.Error(err))
		}
		logger.Info("no snapshot found, starting empty")
	} else {
		logger.Info("resumed", zap.String("snapshot", rec.ID), zap.Int("day", int(rec.Day)))
	}

	router := api.NewRouter(handler, cfg.CORSOrigins, m)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("env", cfg.Env),
			zap.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if _, err := handler.SaveSnapshot(shutdownCtx, generic.SnapshotShutdown); err != nil {
		logger.Error("failed to save shutdown snapshot", zap.Error(err))
	}

	logger.Info("server stopped")
}
