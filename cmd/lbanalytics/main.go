package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FCHEHIDI/lb-analytics/api"
	"github.com/FCHEHIDI/lb-analytics/internal/logger"
	"github.com/FCHEHIDI/lb-analytics/internal/orchestrator"
	"github.com/FCHEHIDI/lb-analytics/pkg/config"
	"github.com/FCHEHIDI/lb-analytics/pkg/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run schema setup and exit")
	purge := flag.Bool("purge", false, "apply retention windows and exit")
	once := flag.Bool("once", false, "run a single pipeline cycle and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	db, err := database.New(cfg.Database.ToDBConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	logger.Info("Database connection established")

	orch := orchestrator.New(cfg, db)

	migrationTimeout := cfg.Database.MigrationTimeout
	if migrationTimeout <= 0 {
		migrationTimeout = 60 * time.Second
	}
	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), migrationTimeout)
	defer schemaCancel()

	// Schema setup always runs: it is idempotent and drift is fatal.
	if err := orch.EnsureSchema(schemaCtx); err != nil {
		return fmt.Errorf("schema setup failed: %w", err)
	}
	if *migrate {
		logger.Info("Schema setup completed")
		return nil
	}

	if *purge {
		logger.Info("Applying retention windows")
		if err := orch.Purge(context.Background()); err != nil {
			return fmt.Errorf("purge failed: %w", err)
		}
		logger.Info("Purge completed")
		return nil
	}

	if *once {
		logger.Info("Running a single pipeline cycle")
		if err := orch.RunOnce(context.Background()); err != nil {
			return fmt.Errorf("pipeline cycle failed: %w", err)
		}
		return nil
	}

	if err := orch.Start(); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	defer orch.Stop()

	server := api.NewServer(cfg, db, orch.Warehouse(), orch)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownTimeout := cfg.App.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}
