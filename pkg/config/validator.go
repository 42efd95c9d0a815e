package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Database validation, only when persistence is on
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}

	// Collector validation
	validSources := map[string]bool{"host": true, "http": true, "simulated": true}
	if !validSources[c.Collector.Source] {
		errs = append(errs, errors.New("collector.source must be one of: host, http, simulated"))
	}
	if c.Collector.Interval <= 0 {
		errs = append(errs, errors.New("collector.interval must be positive"))
	}
	if c.Collector.Timeout <= 0 {
		errs = append(errs, errors.New("collector.timeout must be positive"))
	}
	if c.Collector.Timeout >= c.Collector.Interval {
		errs = append(errs, errors.New("collector.timeout must be less than collector.interval"))
	}

	// History validation
	if c.History.Window <= 0 {
		errs = append(errs, errors.New("history.window must be positive"))
	}

	// Analyzer validation
	if c.Analyzer.MinSamples < 2 {
		errs = append(errs, errors.New("analyzer.min_samples must be at least 2"))
	}
	if c.Analyzer.LowThreshold < 0 {
		errs = append(errs, errors.New("analyzer.low_threshold must not be negative"))
	}
	if c.Analyzer.HighThreshold <= c.Analyzer.LowThreshold {
		errs = append(errs, errors.New("analyzer.high_threshold must be greater than low_threshold"))
	}

	// Forecaster validation
	if c.Forecaster.HorizonMinutes <= 0 {
		errs = append(errs, errors.New("forecaster.horizon_minutes must be positive"))
	}
	if c.Forecaster.DampeningStdDev < 0 || c.Forecaster.DampeningStdDev > 0.5 {
		errs = append(errs, errors.New("forecaster.dampening_stddev must be between 0 and 0.5"))
	}

	// Decision and scaler validation
	if c.Decision.Interval <= 0 {
		errs = append(errs, errors.New("decision.interval must be positive"))
	}
	if c.Scaler.CooldownPeriod <= 0 {
		errs = append(errs, errors.New("scaler.cooldown_period must be positive"))
	}
	if c.Scaler.ScalingThreshold <= 0 || c.Scaler.ScalingThreshold > 0.95 {
		errs = append(errs, errors.New("scaler.scaling_threshold must be in (0, 0.95]"))
	}

	// Trainer validation
	if c.Trainer.Enabled {
		if c.Trainer.Interval <= 0 {
			errs = append(errs, errors.New("trainer.interval must be positive"))
		}
		if c.Trainer.MinSamples < 2 {
			errs = append(errs, errors.New("trainer.min_samples must be at least 2"))
		}
		if c.Trainer.Clusters <= 0 {
			errs = append(errs, errors.New("trainer.clusters must be positive"))
		}
		if c.Trainer.Contamination <= 0 || c.Trainer.Contamination >= 0.5 {
			errs = append(errs, errors.New("trainer.contamination must be in (0, 0.5)"))
		}
	}

	// Pool validation
	if c.Pools.MinThreads <= 0 {
		errs = append(errs, errors.New("pools.min_threads must be positive"))
	}
	if c.Pools.MaxThreads < c.Pools.MinThreads {
		errs = append(errs, errors.New("pools.max_threads must be >= min_threads"))
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.App.Mode == "production" && c.API.AdminSecret == "" {
		errs = append(errs, errors.New("api.admin_secret is required in production"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
