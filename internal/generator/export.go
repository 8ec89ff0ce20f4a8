package generator

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// WriteRequestsCSV saves request records as CSV with a header row, one
// record per line in the wire column order.
func WriteRequestsCSV(path string, records []models.RequestRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"timestamp", "server_id", "region", "request_method", "status_code",
		"response_time_ms", "retry_rate", "bytes_sent", "client_ip", "user_agent",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.Timestamp.Format("2006-01-02T15:04:05.000000"),
			r.ServerID,
			r.Region,
			string(r.Method),
			strconv.Itoa(r.StatusCode),
			strconv.Itoa(r.ResponseTimeMs),
			strconv.FormatFloat(r.RetryRate, 'f', 3, 64),
			strconv.FormatInt(r.BytesSent, 10),
			r.ClientIP,
			r.UserAgent,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// WriteMetricsCSV saves metric samples as CSV with a header row.
func WriteMetricsCSV(path string, samples []models.ServerMetricSample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"timestamp", "server_id", "cpu_usage_percent", "memory_usage_percent",
		"disk_usage_percent", "network_in_mbps", "network_out_mbps",
		"active_connections", "requests_per_second", "backend_health_failures",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, s := range samples {
		row := []string{
			s.Timestamp.Format("2006-01-02T15:04:05.000000"),
			s.ServerID,
			strconv.FormatFloat(s.CPUUsagePercent, 'f', 2, 64),
			strconv.FormatFloat(s.MemoryUsagePercent, 'f', 2, 64),
			strconv.FormatFloat(s.DiskUsagePercent, 'f', 2, 64),
			strconv.FormatFloat(s.NetworkInMbps, 'f', 2, 64),
			strconv.FormatFloat(s.NetworkOutMbps, 'f', 2, 64),
			strconv.Itoa(s.ActiveConnections),
			strconv.FormatFloat(s.RequestsPerSecond, 'f', 0, 64),
			strconv.Itoa(s.BackendHealthFailures),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// WriteJSON saves any dataset as indented JSON.
func WriteJSON(path string, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}
