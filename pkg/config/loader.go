package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	// A .env file, if present, feeds the environment before viper reads it.
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/lb-analytics")
	}

	// Environment variable settings
	v.SetEnvPrefix("LBANALYTICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "lb-analytics")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "traffic_insights")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.migration_timeout", "60s")

	// Generator defaults
	v.SetDefault("generator.num_servers", 20)
	v.SetDefault("generator.regions", []string{"us-east-1", "us-west-2", "eu-west-1", "ap-southeast-1"})
	v.SetDefault("generator.interval_minutes", 60)

	// Classifier defaults
	v.SetDefault("classifier.failure_statuses", []int{500, 503, 504})
	v.SetDefault("classifier.latency_outlier_ms", 1000)
	v.SetDefault("classifier.retry_spike_rate", 0.3)
	v.SetDefault("classifier.workers", 4)

	// Warehouse defaults
	v.SetDefault("warehouse.chunk_size", 1000)
	v.SetDefault("warehouse.statement_timeout", "30s")
	v.SetDefault("warehouse.retention.raw_days", 90)
	v.SetDefault("warehouse.retention.report_days", 365)
	v.SetDefault("warehouse.circuit_breaker.max_failures", 5)
	v.SetDefault("warehouse.circuit_breaker.timeout", "30s")

	// Pipeline defaults
	v.SetDefault("pipeline.interval", "1h")
	v.SetDefault("pipeline.num_requests", 15000)
	v.SetDefault("pipeline.span_hours", 24)
	v.SetDefault("pipeline.max_retries", 3)
	v.SetDefault("pipeline.retry_backoff", "2s")

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.default_limit", 100)
	v.SetDefault("api.max_limit", 1000)
	v.SetDefault("api.rate_limit", 120)

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.broadcast_buffer", 256)
	v.SetDefault("websocket.client_buffer", 256)

	// Events defaults
	v.SetDefault("events.buffer_size", 100)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
}
