package queries

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/FCHEHIDI/lb-analytics/pkg/database"
	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// ReportRepository stores analytics reports as opaque JSONB documents and
// reads summaries back without unmarshalling the whole payload.
type ReportRepository struct {
	db *database.DB
}

func NewReportRepository(db *database.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Insert stores one report. The batch id travels alongside the document so
// a re-run of the same batch is visible to callers that care, and the
// record count and processing time are denormalized for cheap listing.
func (r *ReportRepository) Insert(ctx context.Context, report *models.AnalyticsReport, reportType models.ReportType) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analytics_reports (
			batch_id, report_ts, report_type, report_data,
			processing_time_ms, record_count
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		report.BatchID, report.Metadata.GeneratedAt, string(reportType),
		payload, report.Metadata.ProcessingTimeMs, report.Metadata.RequestLogEntries,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analytics report: %w", err)
	}
	return nil
}

// ExistsForBatch reports whether a report for the given batch id is already
// stored. The pipeline uses this for at-most-once bookkeeping on re-runs.
func (r *ReportRepository) ExistsForBatch(ctx context.Context, batchID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM analytics_reports WHERE batch_id = $1)`,
		batchID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check report existence: %w", err)
	}
	return exists, nil
}

// ReportSummary is the listing projection of a stored report. Headline
// figures are plucked from the JSONB document rather than unmarshalling it.
type ReportSummary struct {
	ID               int64     `json:"id"`
	BatchID          string    `json:"batch_id"`
	ReportTS         time.Time `json:"report_ts"`
	ReportType       string    `json:"report_type"`
	RecordCount      int       `json:"record_count"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	TotalRequests    int64     `json:"total_requests"`
	ErrorRatePercent *float64  `json:"error_rate_percent"`
	AnomalousTotal   int64     `json:"anomalous_total"`
}

// List returns the most recent report summaries, newest first.
func (r *ReportRepository) List(ctx context.Context, limit int) ([]ReportSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, batch_id, report_ts, report_type,
		       COALESCE(record_count, 0), COALESCE(processing_time_ms, 0),
		       report_data::text
		FROM analytics_reports
		ORDER BY report_ts DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var result []ReportSummary
	for rows.Next() {
		var s ReportSummary
		var doc string
		if err := rows.Scan(&s.ID, &s.BatchID, &s.ReportTS, &s.ReportType,
			&s.RecordCount, &s.ProcessingTimeMs, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}

		s.TotalRequests = gjson.Get(doc, "request_kpis.total_requests").Int()
		s.AnomalousTotal = gjson.Get(doc, "anomalies.anomalous_total").Int()
		if v := gjson.Get(doc, "request_kpis.error_rate_percent"); v.Exists() && v.Type != gjson.Null {
			rate := v.Float()
			s.ErrorRatePercent = &rate
		}

		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report rows: %w", err)
	}
	return result, nil
}

// Get returns one stored report document by id.
func (r *ReportRepository) Get(ctx context.Context, id int64) (*models.AnalyticsReport, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT report_data FROM analytics_reports WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report %d: %w", id, err)
	}

	var report models.AnalyticsReport
	if err := json.Unmarshal(doc, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %d: %w", id, err)
	}
	return &report, nil
}
