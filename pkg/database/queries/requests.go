package queries

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FCHEHIDI/lb-analytics/pkg/database"
	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// RequestLogRepository owns reads and writes on the request_logs table and
// the anomaly view derived from it.
type RequestLogRepository struct {
	db *database.DB
}

func NewRequestLogRepository(db *database.DB) *RequestLogRepository {
	return &RequestLogRepository{db: db}
}

// InsertChunk writes one chunk of records inside a single transaction.
// Either every record in the chunk lands or none does: a CHECK-constraint
// violation on any row rolls the whole chunk back.
func (r *RequestLogRepository) InsertChunk(ctx context.Context, records []models.RequestRecord) error {
	if len(records) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO request_logs (
				ts, server_id, region, request_method, status_code,
				response_time_ms, retry_rate, bytes_sent, client_ip, user_agent
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
		if err != nil {
			return fmt.Errorf("failed to prepare request insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			if _, err := stmt.ExecContext(ctx,
				rec.Timestamp, rec.ServerID, rec.Region, string(rec.Method),
				rec.StatusCode, rec.ResponseTimeMs, rec.RetryRate,
				rec.BytesSent, rec.ClientIP, rec.UserAgent,
			); err != nil {
				return fmt.Errorf("failed to insert request record: %w", err)
			}
		}
		return nil
	})
}

// Count returns the number of stored request records.
func (r *RequestLogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM request_logs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count request logs: %w", err)
	}
	return count, nil
}

// AnomalyRow is one row from request_anomaly_view: the raw request fields
// plus the full anomaly annotation recomputed in SQL.
type AnomalyRow struct {
	ID         int64                    `json:"id"`
	Record     models.RequestRecord     `json:"record"`
	Annotation models.AnomalyAnnotation `json:"annotation"`
}

// ListAnomalies reads annotated requests at or above the given score,
// newest first.
func (r *RequestLogRepository) ListAnomalies(ctx context.Context, minScore, limit int) ([]AnomalyRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ts, server_id, region, request_method, status_code,
		       response_time_ms, retry_rate,
		       is_failure, is_latency_outlier, is_retry_spike, anomaly_score,
		       severity_tier, failure_type, latency_bucket, method_category, is_weekend
		FROM request_anomaly_view
		WHERE anomaly_score >= $1
		ORDER BY ts DESC
		LIMIT $2`, minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomaly view: %w", err)
	}
	defer rows.Close()

	var result []AnomalyRow
	for rows.Next() {
		var row AnomalyRow
		var method string
		if err := rows.Scan(
			&row.ID, &row.Record.Timestamp, &row.Record.ServerID, &row.Record.Region,
			&method, &row.Record.StatusCode, &row.Record.ResponseTimeMs, &row.Record.RetryRate,
			&row.Annotation.IsFailure, &row.Annotation.IsLatencyOutlier,
			&row.Annotation.IsRetrySpike, &row.Annotation.AnomalyScore,
			&row.Annotation.SeverityTier, &row.Annotation.FailureType,
			&row.Annotation.LatencyBucket, &row.Annotation.MethodCategory,
			&row.Annotation.IsWeekend,
		); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly row: %w", err)
		}
		row.Record.Method = models.Method(method)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate anomaly rows: %w", err)
	}
	return result, nil
}

// KPIFromView recomputes the warehouse-wide KPI snapshot straight from
// kpi_snapshot_view. NULL ratio columns stay nil on the Go side.
func (r *RequestLogRepository) KPIFromView(ctx context.Context) (models.KPISnapshot, error) {
	var snap models.KPISnapshot
	err := r.db.QueryRowContext(ctx, `
		SELECT total_requests, requests_per_second, avg_response_time_ms,
		       p95_response_time_ms, error_rate_percent, avg_retry_rate
		FROM kpi_snapshot_view`).Scan(
		&snap.TotalRequests, &snap.RequestsPerSecond, &snap.AvgResponseTimeMs,
		&snap.P95ResponseTimeMs, &snap.ErrorRatePercent, &snap.AvgRetryRate,
	)
	if err != nil {
		return models.KPISnapshot{}, fmt.Errorf("failed to query kpi view: %w", err)
	}
	return snap, nil
}
