package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "lb-analytics", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Mode)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.App.ShutdownTimeout)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "traffic_insights", cfg.Database.Name)
	assert.Equal(t, 25, cfg.Database.MaxConnections)

	assert.Equal(t, 20, cfg.Generator.NumServers)
	assert.Equal(t, []string{"us-east-1", "us-west-2", "eu-west-1", "ap-southeast-1"}, cfg.Generator.Regions)

	assert.Equal(t, []int{500, 503, 504}, cfg.Classifier.FailureStatuses)
	assert.Equal(t, 1000, cfg.Classifier.LatencyOutlierMs)
	assert.Equal(t, 0.3, cfg.Classifier.RetrySpikeRate)

	assert.Equal(t, 1000, cfg.Warehouse.ChunkSize)
	assert.Equal(t, 90, cfg.Warehouse.Retention.RawDays)
	assert.Equal(t, 365, cfg.Warehouse.Retention.ReportDays)

	assert.Equal(t, time.Hour, cfg.Pipeline.Interval)
	assert.Equal(t, 15000, cfg.Pipeline.NumRequests)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 120, cfg.API.RateLimit)
	assert.True(t, cfg.Metrics.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
app:
  name: test-analytics
  mode: test
database:
  host: db.internal
  port: 5433
pipeline:
  num_requests: 500
classifier:
  latency_outlier_ms: 750
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-analytics", cfg.App.Name)
	assert.Equal(t, "test", cfg.App.Mode)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 500, cfg.Pipeline.NumRequests)
	assert.Equal(t, 750, cfg.Classifier.LatencyOutlierMs)

	// Unset keys still come from defaults.
	assert.Equal(t, "traffic_insights", cfg.Database.Name)
	assert.Equal(t, 1000, cfg.Warehouse.ChunkSize)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app: [not: a: map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty app name", func(c *Config) { c.App.Name = "" }},
		{"bad mode", func(c *Config) { c.App.Mode = "staging" }},
		{"bad log level", func(c *Config) { c.App.LogLevel = "trace" }},
		{"missing db host", func(c *Config) { c.Database.Host = "" }},
		{"db port out of range", func(c *Config) { c.Database.Port = 70000 }},
		{"zero servers", func(c *Config) { c.Generator.NumServers = 0 }},
		{"no regions", func(c *Config) { c.Generator.Regions = nil }},
		{"no failure statuses", func(c *Config) { c.Classifier.FailureStatuses = nil }},
		{"negative latency threshold", func(c *Config) { c.Classifier.LatencyOutlierMs = -1 }},
		{"retry rate above one", func(c *Config) { c.Classifier.RetrySpikeRate = 1.5 }},
		{"zero chunk size", func(c *Config) { c.Warehouse.ChunkSize = 0 }},
		{"report retention shorter than raw", func(c *Config) {
			c.Warehouse.Retention.RawDays = 100
			c.Warehouse.Retention.ReportDays = 30
		}},
		{"zero pipeline interval", func(c *Config) { c.Pipeline.Interval = 0 }},
		{"negative retries", func(c *Config) { c.Pipeline.MaxRetries = -1 }},
		{"api port out of range", func(c *Config) { c.API.Port = 0 }},
		{"zero api rate limit", func(c *Config) { c.API.RateLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "localhost", Port: 5432,
		User: "admin", Password: "secret",
		Name: "traffic_insights",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=traffic_insights")
	assert.Contains(t, dsn, "sslmode=disable", "ssl mode defaults to disable")

	d.SSLMode = "require"
	assert.Contains(t, d.DSN(), "sslmode=require")
}
