package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/internal/simulator"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand serves a simulated service for the http collector source to poll.
func newRootCommand() *cobra.Command {
	var (
		cfg      simulator.Config
		logLevel string
	)

	cmd := &cobra.Command{
		Use:          "simulator",
		Short:        "Serve a simulated workload for the http collector source",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Setup(logger.Options{Level: logLevel, Mode: "development", Service: "simulator"})
			logger.WithFields(map[string]interface{}{
				"port":    cfg.Port,
				"pattern": cfg.Pattern,
			}).Info("Starting load simulator")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, simulator.New(cfg))
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&cfg.Port, "port", 9000, "simulator server port")
	flags.StringVar(&cfg.Pattern, "pattern", "daily", "demand pattern: steady, daily, weekly, random, gradual_rise, sine_wave")
	flags.Int64Var(&cfg.Seed, "seed", 0, "noise seed, 0 for time-based")
	flags.Float64Var(&cfg.Service.BaseCPU, "base-cpu", 50, "baseline cpu usage percent")
	flags.StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}

func serve(ctx context.Context, sim *simulator.Simulator) error {
	if err := sim.Start(); err != nil {
		return fmt.Errorf("failed to start simulator: %w", err)
	}

	<-ctx.Done()
	logger.Info("Shutting down simulator")
	return sim.Stop()
}
