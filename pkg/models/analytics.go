package models

import "time"

// KPISnapshot summarizes one batch of request records. It is recomputed
// from scratch per batch and never merged with history. Ratio fields are
// nil rather than zero when their denominator is zero, so an idle batch is
// distinguishable from a batch that was never observed.
type KPISnapshot struct {
	TotalRequests     int      `json:"total_requests"`
	RequestsPerSecond *float64 `json:"requests_per_second"`
	AvgResponseTimeMs *float64 `json:"avg_response_time_ms"`
	P95ResponseTimeMs *float64 `json:"p95_response_time_ms"`
	ErrorRatePercent  *float64 `json:"error_rate_percent"`
	AvgRetryRate      *float64 `json:"avg_retry_rate"`
}

// ServerHealthSummary aggregates the metric samples of one server within
// a batch. One summary exists per distinct server_id seen.
type ServerHealthSummary struct {
	ServerID             string  `json:"server_id"`
	AvgCPUPercent        float64 `json:"avg_cpu_percent"`
	AvgMemoryPercent     float64 `json:"avg_memory_percent"`
	AvgDiskPercent       float64 `json:"avg_disk_percent"`
	AvgRequestsPerSecond float64 `json:"avg_requests_per_second"`
	HealthFailures       int64   `json:"health_failures"`
	SampleCount          int     `json:"sample_count"`
}

// TrafficPatterns captures temporal traffic behavior for the report.
type TrafficPatterns struct {
	HourlyVolume     map[int]int     `json:"hourly_volume"`
	HourlyAvgLatency map[int]float64 `json:"hourly_avg_latency_ms"`
	WeekendRequests  int             `json:"weekend_requests"`
	WeekdayRequests  int             `json:"weekday_requests"`
}

// AnomalySummary counts classified requests per severity tier.
type AnomalySummary struct {
	TierCounts     map[SeverityTier]int `json:"tier_counts"`
	AnomalousTotal int                  `json:"anomalous_total"`
	WarningCount   int                  `json:"warning_count"`
}

// ReportMetadata describes the batch a report was computed from.
type ReportMetadata struct {
	GeneratedAt       time.Time  `json:"generated_at"`
	RequestLogEntries int        `json:"request_log_entries"`
	ServerMetricCount int        `json:"server_metric_entries"`
	TimeRangeStart    *time.Time `json:"time_range_start,omitempty"`
	TimeRangeEnd      *time.Time `json:"time_range_end,omitempty"`
	ProcessingTimeMs  int64      `json:"processing_time_ms"`
}

// AnalyticsReport is the full derived output for one batch. It is
// serialized to JSON and stored opaquely in the analytics_reports table.
type AnalyticsReport struct {
	BatchID      string                `json:"batch_id"`
	Metadata     ReportMetadata        `json:"report_metadata"`
	RequestKPIs  KPISnapshot           `json:"request_kpis"`
	ServerHealth []ServerHealthSummary `json:"server_health"`
	Patterns     TrafficPatterns       `json:"traffic_patterns"`
	Anomalies    AnomalySummary        `json:"anomalies"`
}

// ReportType distinguishes stored report flavors.
type ReportType string

const (
	ReportComprehensive ReportType = "comprehensive"
	ReportSummary       ReportType = "summary"
)

// DataQualityMetric is one warehouse quality check result for a table.
type DataQualityMetric struct {
	TableName          string    `json:"table_name"`
	TotalRecords       int64     `json:"total_records"`
	NullValues         int64     `json:"null_values"`
	InvalidValues      int64     `json:"invalid_values"`
	DataFreshnessHours *float64  `json:"data_freshness_hours"`
	CheckedAt          time.Time `json:"checked_at"`
}
