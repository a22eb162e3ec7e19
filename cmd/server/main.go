/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the cost analysis API server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (YAML file, .env, environment, then flags)
  2. Build the zap logger
  3. Initialize SQLite store (optionally seeding the demo project)
  4. Create the analysis engine and API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (default: cost-engine.yaml, optional)
  -port    HTTP server port, overrides server.port
  -db      SQLite database path, overrides database.path
           Use ":memory:" for in-memory database
  -seed    Demo scenario to load on startup (e.g. obra-demo); resets the store

ENVIRONMENT:
  COST_ENGINE_DB, COST_ENGINE_PORT, COST_ENGINE_LOG_LEVEL,
  COST_ENGINE_ALLOWED_ORIGINS. A .env file in the working directory is read
  first.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - config/config.go: configuration keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/cost-engine/analysis"
	"github.com/warp/cost-engine/api"
	"github.com/warp/cost-engine/config"
	"github.com/warp/cost-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	// Flags
	cfgPath := flag.String("config", "cost-engine.yaml", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	seed := flag.String("seed", "", "demo scenario to load on startup")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer store.Close()

	// database.seed only fills an empty store; -seed always resets.
	if *seed == "" && cfg.Database.Seed {
		projects, err := store.ListProjects(context.Background())
		if err != nil {
			logger.Fatal("failed to inspect database", zap.Error(err))
		}
		if len(projects) == 0 {
			*seed = "obra-demo"
		}
	}
	if *seed != "" {
		if err := api.Seed(context.Background(), store, *seed); err != nil {
			logger.Fatal("failed to seed database", zap.String("scenario", *seed), zap.Error(err))
		}
		logger.Info("demo scenario loaded", zap.String("scenario", *seed))
	}

	engine := analysis.NewEngine(store, logger.Named("analysis"))
	engine.DefaultCoefK = cfg.Analysis.DefaultCoefK
	engine.RankingSize = cfg.Analysis.RankingSize
	engine.Bands = cfg.Analysis.Bands
	engine.MonthLabels = cfg.Calendar.MonthLabels

	handler := api.NewHandler(engine, store, logger.Named("api"))
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.Server.AllowedOrigins})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.String("addr", fmt.Sprintf("http://localhost:%d/api", cfg.Server.Port)),
			zap.String("db", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
