package queries

import (
	"context"
	"fmt"
	"time"

	"github.com/FCHEHIDI/lb-analytics/pkg/database"
	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// QualityRepository runs data-quality checks over the warehouse tables and
// records their results in data_quality_metrics.
type QualityRepository struct {
	db *database.DB
}

func NewQualityRepository(db *database.DB) *QualityRepository {
	return &QualityRepository{db: db}
}

// CheckRequestLogs measures the request_logs table: row count, suspicious
// values that slipped past constraints (zero response times with error
// statuses), and freshness as hours since the newest record.
func (r *QualityRepository) CheckRequestLogs(ctx context.Context) (models.DataQualityMetric, error) {
	metric := models.DataQualityMetric{
		TableName: "request_logs",
		CheckedAt: time.Now().UTC(),
	}

	var latest *time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE client_ip IS NULL OR user_agent IS NULL),
		       COUNT(*) FILTER (WHERE response_time_ms = 0 AND status_code >= 500),
		       MAX(ts)
		FROM request_logs`).Scan(
		&metric.TotalRecords, &metric.NullValues, &metric.InvalidValues, &latest)
	if err != nil {
		return metric, fmt.Errorf("failed to check request_logs quality: %w", err)
	}

	if latest != nil {
		hours := time.Since(*latest).Hours()
		metric.DataFreshnessHours = &hours
	}
	return metric, nil
}

// CheckServerMetrics measures the server_metrics table the same way.
func (r *QualityRepository) CheckServerMetrics(ctx context.Context) (models.DataQualityMetric, error) {
	metric := models.DataQualityMetric{
		TableName: "server_metrics",
		CheckedAt: time.Now().UTC(),
	}

	var latest *time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       0,
		       COUNT(*) FILTER (WHERE cpu_usage_percent > 95 AND requests_per_second = 0),
		       MAX(ts)
		FROM server_metrics`).Scan(
		&metric.TotalRecords, &metric.NullValues, &metric.InvalidValues, &latest)
	if err != nil {
		return metric, fmt.Errorf("failed to check server_metrics quality: %w", err)
	}

	if latest != nil {
		hours := time.Since(*latest).Hours()
		metric.DataFreshnessHours = &hours
	}
	return metric, nil
}

// Record persists one quality check result.
func (r *QualityRepository) Record(ctx context.Context, m models.DataQualityMetric) error {
	score := qualityScore(m)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO data_quality_metrics (
			check_ts, table_name, total_records, null_values,
			invalid_values, data_freshness_hours, quality_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.CheckedAt, m.TableName, m.TotalRecords, m.NullValues,
		m.InvalidValues, m.DataFreshnessHours, score)
	if err != nil {
		return fmt.Errorf("failed to record quality metric: %w", err)
	}
	return nil
}

// Latest returns the most recent quality check per table.
func (r *QualityRepository) Latest(ctx context.Context) ([]models.DataQualityMetric, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (table_name)
		       table_name, total_records, COALESCE(null_values, 0),
		       COALESCE(invalid_values, 0), data_freshness_hours, check_ts
		FROM data_quality_metrics
		ORDER BY table_name, check_ts DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query quality metrics: %w", err)
	}
	defer rows.Close()

	var result []models.DataQualityMetric
	for rows.Next() {
		var m models.DataQualityMetric
		if err := rows.Scan(&m.TableName, &m.TotalRecords, &m.NullValues,
			&m.InvalidValues, &m.DataFreshnessHours, &m.CheckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quality row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quality rows: %w", err)
	}
	return result, nil
}

// qualityScore condenses a check into a 0-100 score: the share of records
// free of null or invalid values, on an empty table 100.
func qualityScore(m models.DataQualityMetric) float64 {
	if m.TotalRecords == 0 {
		return 100
	}
	bad := m.NullValues + m.InvalidValues
	if bad > m.TotalRecords {
		bad = m.TotalRecords
	}
	return 100 * float64(m.TotalRecords-bad) / float64(m.TotalRecords)
}
