package config

import "time"

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Collector  CollectorConfig  `mapstructure:"collector"`
	History    HistoryConfig    `mapstructure:"history"`
	Analyzer   AnalyzerConfig   `mapstructure:"analyzer"`
	Forecaster ForecasterConfig `mapstructure:"forecaster"`
	Decision   DecisionConfig   `mapstructure:"decision"`
	Scaler     ScalerConfig     `mapstructure:"scaler"`
	Trainer    TrainerConfig    `mapstructure:"trainer"`
	Pools      PoolsConfig      `mapstructure:"pools"`
	Redis      RedisConfig      `mapstructure:"redis"`
	API        APIConfig        `mapstructure:"api"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Events     EventsConfig     `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Name             string        `mapstructure:"name"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	MaxConnections   int           `mapstructure:"max_connections"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout      time.Duration `mapstructure:"ping_timeout"`
	MigrationTimeout time.Duration `mapstructure:"migration_timeout"`
}

type CollectorConfig struct {
	// Source selects the collaborator set: host, http or simulated.
	Source         string               `mapstructure:"source"`
	Endpoint       string               `mapstructure:"endpoint"`
	Pattern        string               `mapstructure:"pattern"`
	Interval       time.Duration        `mapstructure:"interval"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type HistoryConfig struct {
	Window     time.Duration `mapstructure:"window"`
	MaxSamples int           `mapstructure:"max_samples"`
}

type AnalyzerConfig struct {
	MinSamples    int     `mapstructure:"min_samples"`
	Window        int     `mapstructure:"window"`
	HighThreshold float64 `mapstructure:"high_threshold"`
	LowThreshold  float64 `mapstructure:"low_threshold"`
}

type ForecasterConfig struct {
	HorizonMinutes  int     `mapstructure:"horizon_minutes"`
	DampeningStdDev float64 `mapstructure:"dampening_stddev"`
	// DisableDampening forecasts the pure trend projection.
	DisableDampening bool `mapstructure:"disable_dampening"`
	// Seed fixes the dampening sequence; zero seeds from the clock.
	Seed int64 `mapstructure:"seed"`
}

type DecisionConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type ScalerConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CooldownPeriod    time.Duration `mapstructure:"cooldown_period"`
	ScalingThreshold  float64       `mapstructure:"scaling_threshold"`
	DispatchTimeout   time.Duration `mapstructure:"dispatch_timeout"`
	ActionLogSize     int           `mapstructure:"action_log_size"`
	PredictionLogSize int           `mapstructure:"prediction_log_size"`
	CachePattern      string        `mapstructure:"cache_pattern"`
}

type TrainerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	MinSamples    int           `mapstructure:"min_samples"`
	Trees         int           `mapstructure:"trees"`
	SubsampleSize int           `mapstructure:"subsample_size"`
	Clusters      int           `mapstructure:"clusters"`
	MaxIterations int           `mapstructure:"max_iterations"`
	Contamination float64       `mapstructure:"contamination"`
	Seed          int64         `mapstructure:"seed"`
}

type PoolsConfig struct {
	// CPUWorkers zero means one worker per core.
	CPUWorkers    int `mapstructure:"cpu_workers"`
	ThreadWorkers int `mapstructure:"thread_workers"`
	MinThreads    int `mapstructure:"min_threads"`
	MaxThreads    int `mapstructure:"max_threads"`
	QueueSize     int `mapstructure:"queue_size"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	ScanBatch   int64         `mapstructure:"scan_batch"`
}

type APIConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	RateLimit    int           `mapstructure:"rate_limit"`
	// AdminSecret signs admin tokens; empty disables the trigger guard.
	AdminSecret   string        `mapstructure:"admin_secret"`
	AdminTokenTTL time.Duration `mapstructure:"admin_token_ttl"`
	AdminIssuer   string        `mapstructure:"admin_issuer"`
	DefaultLimit  int           `mapstructure:"default_limit"`
	MaxLimit      int           `mapstructure:"max_limit"`
	CORS          CORSConfig    `mapstructure:"cors"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
