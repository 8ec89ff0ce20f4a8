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

	// Database validation
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

	// Generator validation
	if c.Generator.NumServers <= 0 {
		errs = append(errs, errors.New("generator.num_servers must be positive"))
	}
	if len(c.Generator.Regions) == 0 {
		errs = append(errs, errors.New("generator.regions must not be empty"))
	}

	// Classifier validation
	if len(c.Classifier.FailureStatuses) == 0 {
		errs = append(errs, errors.New("classifier.failure_statuses must not be empty"))
	}
	if c.Classifier.LatencyOutlierMs <= 0 {
		errs = append(errs, errors.New("classifier.latency_outlier_ms must be positive"))
	}
	if c.Classifier.RetrySpikeRate < 0 || c.Classifier.RetrySpikeRate > 1 {
		errs = append(errs, errors.New("classifier.retry_spike_rate must be between 0 and 1"))
	}

	// Warehouse validation
	if c.Warehouse.ChunkSize <= 0 {
		errs = append(errs, errors.New("warehouse.chunk_size must be positive"))
	}
	if c.Warehouse.Retention.RawDays <= 0 {
		errs = append(errs, errors.New("warehouse.retention.raw_days must be positive"))
	}
	if c.Warehouse.Retention.ReportDays < c.Warehouse.Retention.RawDays {
		errs = append(errs, errors.New("warehouse.retention.report_days must be >= raw_days"))
	}

	// Pipeline validation
	if c.Pipeline.Interval <= 0 {
		errs = append(errs, errors.New("pipeline.interval must be positive"))
	}
	if c.Pipeline.NumRequests <= 0 {
		errs = append(errs, errors.New("pipeline.num_requests must be positive"))
	}
	if c.Pipeline.MaxRetries < 0 {
		errs = append(errs, errors.New("pipeline.max_retries must not be negative"))
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.API.RateLimit <= 0 {
		errs = append(errs, errors.New("api.rate_limit must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
