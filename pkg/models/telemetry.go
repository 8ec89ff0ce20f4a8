package models

import "time"

// Method is an HTTP verb as reported by the load balancer access log.
type Method string

const (
	MethodGet    Method = "GET"
	MethodHead   Method = "HEAD"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// RequestRecord is a single load-balancer request event. Records are
// immutable once produced by the collector; the ingestion pipeline owns
// them for the lifetime of one batch.
type RequestRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	ServerID       string    `json:"server_id"`
	Region         string    `json:"region"`
	Method         Method    `json:"request_method"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMs int       `json:"response_time_ms"`
	RetryRate      float64   `json:"retry_rate"`
	BytesSent      int64     `json:"bytes_sent"`
	ClientIP       string    `json:"client_ip"`
	UserAgent      string    `json:"user_agent"`
}

// HasValidStatus reports whether the status code is inside the HTTP range.
// Records with a malformed status are still classified, just never as
// failures.
func (r RequestRecord) HasValidStatus() bool {
	return r.StatusCode >= 100 && r.StatusCode <= 599
}

// IsError reports whether the record carries a 4xx or 5xx status.
func (r RequestRecord) IsError() bool {
	return r.StatusCode >= 400 && r.StatusCode <= 599
}

// ServerMetricSample is one resource-utilization snapshot for a backend
// server, produced by the metrics collector on a fixed interval.
type ServerMetricSample struct {
	Timestamp             time.Time `json:"timestamp"`
	ServerID              string    `json:"server_id"`
	CPUUsagePercent       float64   `json:"cpu_usage_percent"`
	MemoryUsagePercent    float64   `json:"memory_usage_percent"`
	DiskUsagePercent      float64   `json:"disk_usage_percent"`
	NetworkInMbps         float64   `json:"network_in_mbps"`
	NetworkOutMbps        float64   `json:"network_out_mbps"`
	ActiveConnections     int       `json:"active_connections"`
	RequestsPerSecond     float64   `json:"requests_per_second"`
	BackendHealthFailures int       `json:"backend_health_failures"`
}

// TelemetryBatch groups the two record streams delivered by the upstream
// producer for one pipeline invocation.
type TelemetryBatch struct {
	BatchID  string               `json:"batch_id"`
	Requests []RequestRecord      `json:"requests"`
	Metrics  []ServerMetricSample `json:"metrics"`
}
