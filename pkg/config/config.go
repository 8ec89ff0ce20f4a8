package config

import (
	"fmt"
	"time"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Generator  GeneratorConfig  `mapstructure:"generator"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Warehouse  WarehouseConfig  `mapstructure:"warehouse"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	API        APIConfig        `mapstructure:"api"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Events     EventsConfig     `mapstructure:"events"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
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

func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslMode,
	)
}

type GeneratorConfig struct {
	NumServers      int      `mapstructure:"num_servers"`
	Regions         []string `mapstructure:"regions"`
	IntervalMinutes int      `mapstructure:"interval_minutes"`
	Seed            int64    `mapstructure:"seed"`
}

// ClassifierConfig carries the anomaly signal thresholds. They are
// configuration, not business logic: tuning them must not require touching
// the scoring algorithm.
type ClassifierConfig struct {
	FailureStatuses  []int   `mapstructure:"failure_statuses"`
	LatencyOutlierMs int     `mapstructure:"latency_outlier_ms"`
	RetrySpikeRate   float64 `mapstructure:"retry_spike_rate"`
	Workers          int     `mapstructure:"workers"`
}

type WarehouseConfig struct {
	ChunkSize        int                  `mapstructure:"chunk_size"`
	StatementTimeout time.Duration        `mapstructure:"statement_timeout"`
	Retention        RetentionConfig      `mapstructure:"retention"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// RetentionConfig holds per-table purge windows. Reports outlive raw
// events.
type RetentionConfig struct {
	RawDays    int `mapstructure:"raw_days"`
	ReportDays int `mapstructure:"report_days"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type PipelineConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	NumRequests  int           `mapstructure:"num_requests"`
	SpanHours    int           `mapstructure:"span_hours"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type APIConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	DefaultLimit int           `mapstructure:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit"`
	RateLimit    int           `mapstructure:"rate_limit"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
