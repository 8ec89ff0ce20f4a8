package queries

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FCHEHIDI/lb-analytics/pkg/database"
	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// ServerMetricRepository owns the server_metrics table and its health view.
type ServerMetricRepository struct {
	db *database.DB
}

func NewServerMetricRepository(db *database.DB) *ServerMetricRepository {
	return &ServerMetricRepository{db: db}
}

// InsertChunk writes one chunk of metric samples in a single transaction.
func (r *ServerMetricRepository) InsertChunk(ctx context.Context, samples []models.ServerMetricSample) error {
	if len(samples) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO server_metrics (
				ts, server_id, cpu_usage_percent, memory_usage_percent,
				disk_usage_percent, network_in_mbps, network_out_mbps,
				active_connections, requests_per_second, backend_health_failures
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
		if err != nil {
			return fmt.Errorf("failed to prepare metric insert: %w", err)
		}
		defer stmt.Close()

		for _, s := range samples {
			if _, err := stmt.ExecContext(ctx,
				s.Timestamp, s.ServerID, s.CPUUsagePercent, s.MemoryUsagePercent,
				s.DiskUsagePercent, s.NetworkInMbps, s.NetworkOutMbps,
				s.ActiveConnections, s.RequestsPerSecond, s.BackendHealthFailures,
			); err != nil {
				return fmt.Errorf("failed to insert metric sample: %w", err)
			}
		}
		return nil
	})
}

// Count returns the number of stored metric samples.
func (r *ServerMetricRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM server_metrics`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count server metrics: %w", err)
	}
	return count, nil
}

// HealthFromView reads per-server health summaries from server_health_view,
// ordered by server id for stable output.
func (r *ServerMetricRepository) HealthFromView(ctx context.Context) ([]models.ServerHealthSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT server_id, avg_cpu_percent, avg_memory_percent, avg_disk_percent,
		       avg_requests_per_second, health_failures, sample_count
		FROM server_health_view
		ORDER BY server_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query server health view: %w", err)
	}
	defer rows.Close()

	var result []models.ServerHealthSummary
	for rows.Next() {
		var s models.ServerHealthSummary
		if err := rows.Scan(
			&s.ServerID, &s.AvgCPUPercent, &s.AvgMemoryPercent, &s.AvgDiskPercent,
			&s.AvgRequestsPerSecond, &s.HealthFailures, &s.SampleCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan server health row: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate server health rows: %w", err)
	}
	return result, nil
}
