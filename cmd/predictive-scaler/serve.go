package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OldStager01/predictive-scaler/api"
	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/internal/metrics"
	"github.com/OldStager01/predictive-scaler/internal/orchestrator"
	"github.com/OldStager01/predictive-scaler/internal/telemetry"
	"github.com/OldStager01/predictive-scaler/pkg/database"
)

func newServeCommand(load configLoader) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scaling engine and its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger.Infof("Starting %s %s in %s mode", cfg.App.Name, version, cfg.App.Mode)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := telemetry.Setup(ctx, cfg.Tracing, version)
			if err != nil {
				return err
			}

			rt, err := buildRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			if migrate && rt.db != nil {
				if err := runMigrations(ctx, rt.db, cfg.Database.MigrationTimeout); err != nil {
					return err
				}
			}

			m := metrics.New()
			engine := orchestrator.NewEngine(cfg, orchestrator.Deps{
				Pools:   rt.set,
				Metrics: m,
				Store:   rt.store,
			})

			server := api.NewServer(cfg, api.Deps{
				Engine:   engine,
				DB:       rt.db,
				Redis:    rt.redis,
				Metrics:  m,
				Counters: rt.counters,
				Cache:    rt.cache,
			})

			engine.Start(ctx)

			errChan := make(chan error, 1)
			go func() {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errChan <- err
				}
			}()

			var serveErr error
			select {
			case serveErr = <-errChan:
				logger.Errorf("API server failed: %v", serveErr)
			case <-ctx.Done():
				logger.Info("Shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Errorf("API shutdown error: %v", err)
			}
			engine.Stop()
			if err := shutdownTracing(shutdownCtx); err != nil {
				logger.Errorf("Tracer shutdown error: %v", err)
			}

			if serveErr != nil {
				return fmt.Errorf("server error: %w", serveErr)
			}
			logger.Info("Stopped gracefully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "run database migrations before starting")
	return cmd
}

func newMigrateCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			db, err := database.New(cmd.Context(), cfg.Database.ToDBConfig())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			return runMigrations(cmd.Context(), db, cfg.Database.MigrationTimeout)
		},
	}
}

func runMigrations(ctx context.Context, db *database.DB, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Info("Running database migrations")
	applied, err := database.NewMigrator(db).Run(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.WithField("applied", len(applied)).Info("Migrations completed successfully")
	return nil
}
