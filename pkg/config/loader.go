package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/predictive-scaler")
	}

	v.SetEnvPrefix("SCALER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: defaults and env vars only
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "predictive-scaler")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "15s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "predictive_scaler")
	v.SetDefault("database.user", "scaler")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.ping_timeout", "5s")
	v.SetDefault("database.migration_timeout", "30s")

	// Collector defaults
	v.SetDefault("collector.source", "host")
	v.SetDefault("collector.endpoint", "http://localhost:9000/performance")
	v.SetDefault("collector.pattern", "daily")
	v.SetDefault("collector.interval", "30s")
	v.SetDefault("collector.timeout", "2s")
	v.SetDefault("collector.circuit_breaker.max_failures", 3)
	v.SetDefault("collector.circuit_breaker.timeout", "60s")

	// History defaults
	v.SetDefault("history.window", "60m")
	v.SetDefault("history.max_samples", 2000)

	// Analyzer defaults
	v.SetDefault("analyzer.min_samples", 5)
	v.SetDefault("analyzer.window", 10)
	v.SetDefault("analyzer.high_threshold", 1.0)
	v.SetDefault("analyzer.low_threshold", 0.1)

	// Forecaster defaults
	v.SetDefault("forecaster.horizon_minutes", 15)
	v.SetDefault("forecaster.dampening_stddev", 0.1)
	v.SetDefault("forecaster.disable_dampening", false)
	v.SetDefault("forecaster.seed", 0)

	// Decision defaults
	v.SetDefault("decision.interval", "60s")

	// Scaler defaults
	v.SetDefault("scaler.enabled", true)
	v.SetDefault("scaler.cooldown_period", "300s")
	v.SetDefault("scaler.scaling_threshold", 0.8)
	v.SetDefault("scaler.dispatch_timeout", "10s")
	v.SetDefault("scaler.action_log_size", 100)
	v.SetDefault("scaler.prediction_log_size", 100)
	v.SetDefault("scaler.cache_pattern", "*")

	// Trainer defaults
	v.SetDefault("trainer.enabled", true)
	v.SetDefault("trainer.interval", "30m")
	v.SetDefault("trainer.min_samples", 20)
	v.SetDefault("trainer.trees", 100)
	v.SetDefault("trainer.subsample_size", 256)
	v.SetDefault("trainer.clusters", 3)
	v.SetDefault("trainer.max_iterations", 50)
	v.SetDefault("trainer.contamination", 0.05)
	v.SetDefault("trainer.seed", 42)

	// Pool defaults
	v.SetDefault("pools.cpu_workers", 0)
	v.SetDefault("pools.thread_workers", 16)
	v.SetDefault("pools.min_threads", 4)
	v.SetDefault("pools.max_threads", 256)
	v.SetDefault("pools.queue_size", 1024)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", "2s")
	v.SetDefault("redis.scan_batch", 500)

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.admin_secret", "")
	v.SetDefault("api.admin_token_ttl", "1h")
	v.SetDefault("api.admin_issuer", "predictive-scaler")
	v.SetDefault("api.default_limit", 50)
	v.SetDefault("api.max_limit", 500)

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 100)
	v.SetDefault("websocket.ping_interval", "30s")

	// Prometheus defaults
	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.path", "/metrics")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "predictive-scaler")
	v.SetDefault("tracing.sample_ratio", 1.0)

	// Events defaults
	v.SetDefault("events.buffer_size", 256)
}
