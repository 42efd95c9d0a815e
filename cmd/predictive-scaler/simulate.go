package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OldStager01/predictive-scaler/internal/logger"
	"github.com/OldStager01/predictive-scaler/internal/orchestrator"
	"github.com/OldStager01/predictive-scaler/internal/simulator"
)

// newSimulateCommand runs the engine against a simulated service through a
// scripted load profile and prints the scaling outlook after each phase.
func newSimulateCommand(load configLoader) *cobra.Command {
	var (
		phase    time.Duration
		interval time.Duration
		pattern  string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive the engine with a simulated load profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			cfg.Collector.Source = "simulated"
			cfg.Database.Enabled = false
			if pattern != "" {
				cfg.Collector.Pattern = pattern
			}
			if interval > 0 {
				cfg.Collector.Interval = interval
				cfg.Decision.Interval = interval
				if cfg.Collector.Timeout >= interval {
					cfg.Collector.Timeout = interval / 2
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			engine := orchestrator.NewEngine(cfg, orchestrator.Deps{Pools: rt.set})
			eventChan := engine.SubscribeAll()
			go func() {
				for event := range eventChan {
					logger.Infof("[EVENT] %s: %s (source: %s, severity: %s)",
						event.Type, event.Message, event.Source, event.Severity)
				}
			}()

			engine.Start(ctx)
			defer engine.Stop()

			phases := []struct {
				name string
				run  func(sim *simulator.ServiceSim)
			}{
				{"baseline", func(*simulator.ServiceSim) {}},
				{"traffic spike", func(sim *simulator.ServiceSim) { sim.InjectSpike(1.9, phase, phase/4) }},
				{"memory pressure", func(sim *simulator.ServiceSim) { sim.InjectMemorySpike(93, phase, phase/4) }},
				{"recovery", func(*simulator.ServiceSim) {}},
			}

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")

			for i, p := range phases {
				logger.Infof("=== Phase %d: %s (%s) ===", i+1, p.name, phase)
				p.run(rt.sim)

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(phase):
				}

				if err := out.Encode(engine.Recommendations(ctx)); err != nil {
					return fmt.Errorf("failed to write recommendations: %w", err)
				}
			}

			logger.Infof("Simulation finished: %d actions, %d samples in history, workers %v",
				len(engine.Actions()), engine.History().Len(), rt.sim.Status())
			return nil
		},
	}

	cmd.Flags().DurationVar(&phase, "phase", 20*time.Second, "duration of each load phase")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "sampling and decision interval")
	cmd.Flags().StringVar(&pattern, "pattern", "steady", "base demand pattern")
	return cmd
}
