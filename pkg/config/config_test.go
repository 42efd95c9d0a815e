package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("")
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, "predictive-scaler", cfg.App.Name)
	assert.Equal(t, "host", cfg.Collector.Source)
	assert.Equal(t, 30*time.Second, cfg.Collector.Interval)
	assert.Equal(t, 60*time.Minute, cfg.History.Window)
	assert.Equal(t, 300*time.Second, cfg.Scaler.CooldownPeriod)
	assert.Equal(t, 0.8, cfg.Scaler.ScalingThreshold)
	assert.Equal(t, 15, cfg.Forecaster.HorizonMinutes)
	assert.Equal(t, 0.1, cfg.Forecaster.DampeningStdDev)
	assert.False(t, cfg.Forecaster.DisableDampening)
	assert.Equal(t, 20, cfg.Trainer.MinSamples)
	assert.Equal(t, int64(500), cfg.Redis.ScanBatch)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaler.yaml")
	yaml := `
app:
  mode: test
collector:
  source: simulated
  pattern: sine_wave
scaler:
  cooldown_period: 90s
api:
  cors:
    allowed_origins: ["https://ops.example"]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("SCALER_API_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Mode)
	assert.Equal(t, "simulated", cfg.Collector.Source)
	assert.Equal(t, "sine_wave", cfg.Collector.Pattern)
	assert.Equal(t, 90*time.Second, cfg.Scaler.CooldownPeriod)
	assert.Equal(t, 9191, cfg.API.Port)
	assert.Equal(t, []string{"https://ops.example"}, cfg.API.CORS.AllowedOrigins)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		errContains string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad mode", func(c *Config) { c.App.Mode = "staging" }, "app.mode"},
		{"bad source", func(c *Config) { c.Collector.Source = "snmp" }, "collector.source"},
		{"timeout not below interval", func(c *Config) { c.Collector.Timeout = c.Collector.Interval }, "collector.timeout must be less"},
		{"thresholds inverted", func(c *Config) { c.Analyzer.HighThreshold = 0.05 }, "analyzer.high_threshold"},
		{"dampening too wide", func(c *Config) { c.Forecaster.DampeningStdDev = 0.9 }, "dampening_stddev"},
		{"threshold above max confidence", func(c *Config) { c.Scaler.ScalingThreshold = 0.99 }, "scaling_threshold"},
		{"zero cooldown", func(c *Config) { c.Scaler.CooldownPeriod = 0 }, "cooldown_period"},
		{"contamination", func(c *Config) { c.Trainer.Contamination = 0.5 }, "contamination"},
		{"trainer off skips trainer checks", func(c *Config) {
			c.Trainer.Enabled = false
			c.Trainer.Contamination = 0
		}, ""},
		{"thread bounds", func(c *Config) { c.Pools.MaxThreads = 1 }, "max_threads"},
		{"db only when enabled", func(c *Config) { c.Database.Host = "" }, ""},
		{"db host", func(c *Config) {
			c.Database.Enabled = true
			c.Database.Host = ""
		}, "database.host"},
		{"production needs secret", func(c *Config) { c.App.Mode = "production" }, "admin_secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestDatabaseConfig_ToDBConfig(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, Name: "n", User: "u", Password: "p", MaxConnections: 4}
	c := d.ToDBConfig()

	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=disable", c.DSN())
	assert.Equal(t, 4, c.MaxConnections)
}
