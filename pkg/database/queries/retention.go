package queries

import (
	"context"
	"fmt"
	"time"

	"github.com/FCHEHIDI/lb-analytics/pkg/database"
)

// retentionTargets maps each purgeable table to the timestamp column its
// retention window is measured against. Raw telemetry and derived reports
// age out on different clocks.
var retentionTargets = []struct {
	Table  string
	Column string
}{
	{"request_logs", "ts"},
	{"server_metrics", "ts"},
	{"analytics_reports", "report_ts"},
	{"data_quality_metrics", "check_ts"},
}

// RetentionRepository deletes rows older than their table's window.
type RetentionRepository struct {
	db *database.DB
}

func NewRetentionRepository(db *database.DB) *RetentionRepository {
	return &RetentionRepository{db: db}
}

// PurgeResult reports rows removed per table in one purge run.
type PurgeResult struct {
	RowsDeleted map[string]int64 `json:"rows_deleted"`
}

// Purge removes expired rows from every retention target. Raw tables use
// rawDays, reports and quality history use reportDays. Each table is purged
// in its own statement so one failure does not undo the others.
func (r *RetentionRepository) Purge(ctx context.Context, rawDays, reportDays int) (PurgeResult, error) {
	result := PurgeResult{RowsDeleted: make(map[string]int64)}
	now := time.Now().UTC()

	for _, target := range retentionTargets {
		days := rawDays
		if target.Table == "analytics_reports" || target.Table == "data_quality_metrics" {
			days = reportDays
		}
		cutoff := now.AddDate(0, 0, -days)

		// Table and column names come from the fixed list above, never
		// from input.
		query := fmt.Sprintf(`DELETE FROM %s WHERE %s < $1`, target.Table, target.Column)
		res, err := r.db.ExecContext(ctx, query, cutoff)
		if err != nil {
			return result, fmt.Errorf("failed to purge %s: %w", target.Table, err)
		}

		deleted, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("failed to read purge count for %s: %w", target.Table, err)
		}
		result.RowsDeleted[target.Table] = deleted
	}

	return result, nil
}
