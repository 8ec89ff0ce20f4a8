package warehouse

import (
	"context"
	"time"

	"github.com/FCHEHIDI/lb-analytics/internal/logger"
	"github.com/FCHEHIDI/lb-analytics/pkg/config"
	"github.com/FCHEHIDI/lb-analytics/pkg/database"
	"github.com/FCHEHIDI/lb-analytics/pkg/database/queries"
	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// Warehouse is the ingestion layer over the Postgres schema. Batches are
// written in chunks; each chunk is one transaction, so a failure loses at
// most one chunk and the BatchResult says exactly which.
type Warehouse struct {
	db        *database.DB
	requests  *queries.RequestLogRepository
	metrics   *queries.ServerMetricRepository
	reports   *queries.ReportRepository
	quality   *queries.QualityRepository
	retention *queries.RetentionRepository

	chunkSize   int
	stmtTimeout time.Duration
}

func New(db *database.DB, cfg config.WarehouseConfig) *Warehouse {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	stmtTimeout := cfg.StatementTimeout
	if stmtTimeout <= 0 {
		stmtTimeout = 30 * time.Second
	}

	return &Warehouse{
		db:          db,
		requests:    queries.NewRequestLogRepository(db),
		metrics:     queries.NewServerMetricRepository(db),
		reports:     queries.NewReportRepository(db),
		quality:     queries.NewQualityRepository(db),
		retention:   queries.NewRetentionRepository(db),
		chunkSize:   chunkSize,
		stmtTimeout: stmtTimeout,
	}
}

// Requests exposes the request-log repository for read paths.
func (w *Warehouse) Requests() *queries.RequestLogRepository { return w.requests }

// Metrics exposes the server-metric repository for read paths.
func (w *Warehouse) Metrics() *queries.ServerMetricRepository { return w.metrics }

// Reports exposes the report repository for read paths.
func (w *Warehouse) Reports() *queries.ReportRepository { return w.reports }

// Quality exposes the data-quality repository for read paths.
func (w *Warehouse) Quality() *queries.QualityRepository { return w.quality }

// EnsureSchema migrates the schema and verifies it afterwards. Drift is
// fatal: the returned error wraps database.ErrSchemaDrift and the caller
// must not proceed to ingestion.
func (w *Warehouse) EnsureSchema(ctx context.Context) error {
	if err := w.db.Migrate(ctx); err != nil {
		return err
	}
	return w.db.VerifySchema(ctx)
}

// InsertRequestBatch writes request records chunk by chunk. Chunks after a
// failed one are still attempted; context cancellation stops the run and
// counts the remaining chunks as failed.
func (w *Warehouse) InsertRequestBatch(ctx context.Context, batchID string, records []models.RequestRecord) BatchResult {
	bounds := chunkBounds(len(records), w.chunkSize)
	var result BatchResult

	for i, b := range bounds {
		if ctx.Err() != nil {
			for j := i; j < len(bounds); j++ {
				result.ChunksFailed++
				result.FailedChunks = append(result.FailedChunks, j)
			}
			break
		}

		chunkCtx, cancel := context.WithTimeout(ctx, w.stmtTimeout)
		err := w.requests.InsertChunk(chunkCtx, records[b[0]:b[1]])
		cancel()

		if err != nil {
			result.ChunksFailed++
			result.FailedChunks = append(result.FailedChunks, i)
			logger.WithBatch(batchID).WithField("chunk", i).
				Errorf("request chunk insert failed: %v", err)
			continue
		}
		result.ChunksCommitted++
		result.RowsInserted += b[1] - b[0]
	}

	return result
}

// InsertServerMetricBatch writes metric samples chunk by chunk with the
// same semantics as InsertRequestBatch.
func (w *Warehouse) InsertServerMetricBatch(ctx context.Context, batchID string, samples []models.ServerMetricSample) BatchResult {
	bounds := chunkBounds(len(samples), w.chunkSize)
	var result BatchResult

	for i, b := range bounds {
		if ctx.Err() != nil {
			for j := i; j < len(bounds); j++ {
				result.ChunksFailed++
				result.FailedChunks = append(result.FailedChunks, j)
			}
			break
		}

		chunkCtx, cancel := context.WithTimeout(ctx, w.stmtTimeout)
		err := w.metrics.InsertChunk(chunkCtx, samples[b[0]:b[1]])
		cancel()

		if err != nil {
			result.ChunksFailed++
			result.FailedChunks = append(result.FailedChunks, i)
			logger.WithBatch(batchID).WithField("chunk", i).
				Errorf("metric chunk insert failed: %v", err)
			continue
		}
		result.ChunksCommitted++
		result.RowsInserted += b[1] - b[0]
	}

	return result
}

// InsertAnalyticsReport stores a report unless one for the same batch id
// already exists. Returns true when the report was written.
func (w *Warehouse) InsertAnalyticsReport(ctx context.Context, report *models.AnalyticsReport, reportType models.ReportType) (bool, error) {
	exists, err := w.reports.ExistsForBatch(ctx, report.BatchID)
	if err != nil {
		return false, err
	}
	if exists {
		logger.WithBatch(report.BatchID).Warn("report already stored, skipping")
		return false, nil
	}
	if err := w.reports.Insert(ctx, report, reportType); err != nil {
		return false, err
	}
	return true, nil
}

// RunQualityChecks measures and records data quality for the raw tables.
func (w *Warehouse) RunQualityChecks(ctx context.Context) ([]models.DataQualityMetric, error) {
	var results []models.DataQualityMetric

	for _, check := range []func(context.Context) (models.DataQualityMetric, error){
		w.quality.CheckRequestLogs,
		w.quality.CheckServerMetrics,
	} {
		metric, err := check(ctx)
		if err != nil {
			return results, err
		}
		if err := w.quality.Record(ctx, metric); err != nil {
			return results, err
		}
		results = append(results, metric)
	}

	return results, nil
}

// Purge applies the retention windows across the warehouse.
func (w *Warehouse) Purge(ctx context.Context, retention config.RetentionConfig) (queries.PurgeResult, error) {
	rawDays := retention.RawDays
	if rawDays <= 0 {
		rawDays = 90
	}
	reportDays := retention.ReportDays
	if reportDays <= 0 {
		reportDays = 365
	}
	return w.retention.Purge(ctx, rawDays, reportDays)
}
