package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/FCHEHIDI/lb-analytics/internal/aggregator"
	"github.com/FCHEHIDI/lb-analytics/internal/classifier"
	"github.com/FCHEHIDI/lb-analytics/internal/events"
	"github.com/FCHEHIDI/lb-analytics/internal/generator"
	"github.com/FCHEHIDI/lb-analytics/internal/logger"
	"github.com/FCHEHIDI/lb-analytics/internal/metrics"
	"github.com/FCHEHIDI/lb-analytics/internal/resilience"
	"github.com/FCHEHIDI/lb-analytics/internal/warehouse"
	"github.com/FCHEHIDI/lb-analytics/pkg/config"
	"github.com/FCHEHIDI/lb-analytics/pkg/database/queries"
	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// ErrPartialIngestion marks a batch where some chunks committed and some
// failed. Raw tables carry no dedup key, so replaying such a batch would
// duplicate every committed chunk; the retry loop must stop on it.
var ErrPartialIngestion = errors.New("partial ingestion")

// Store is the warehouse surface the pipeline writes through.
type Store interface {
	InsertRequestBatch(ctx context.Context, batchID string, records []models.RequestRecord) warehouse.BatchResult
	InsertServerMetricBatch(ctx context.Context, batchID string, samples []models.ServerMetricSample) warehouse.BatchResult
	InsertAnalyticsReport(ctx context.Context, report *models.AnalyticsReport, reportType models.ReportType) (bool, error)
	RunQualityChecks(ctx context.Context) ([]models.DataQualityMetric, error)
	Purge(ctx context.Context, retention config.RetentionConfig) (queries.PurgeResult, error)
}

type PipelineConfig struct {
	Interval        time.Duration
	NumRequests     int
	SpanHours       int
	IntervalMinutes int
	MaxRetries      int
	RetryBackoff    time.Duration
	ClassifyWorkers int

	Generator      *generator.Generator
	Classifier     *classifier.Classifier
	Warehouse      Store
	Breaker        *resilience.CircuitBreaker
	EventPublisher *events.Publisher
	Retention      config.RetentionConfig
}

// Pipeline drives one full cycle on a ticker: generate telemetry, compute
// the analytics report, classify anomalies, ingest everything and store
// the report. Ingestion goes through the circuit breaker with bounded
// retries.
type Pipeline struct {
	config  PipelineConfig
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	if cfg.NumRequests <= 0 {
		cfg.NumRequests = 5000
	}
	if cfg.SpanHours <= 0 {
		cfg.SpanHours = 24
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pipeline{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	p.running = true
	p.wg.Add(1)
	go p.run()

	logger.Info("Pipeline started")
	return nil
}

func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	logger.Info("Pipeline stopped")
}

func (p *Pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pipeline) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Run immediately on start
	if err := p.RunCycle(p.ctx); err != nil {
		logger.Errorf("Pipeline cycle failed: %v", err)
	}

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if err := p.RunCycle(p.ctx); err != nil {
				logger.Errorf("Pipeline cycle failed: %v", err)
			}
		}
	}
}

// RunCycle executes one generate-analyze-ingest pass. Exported so the CLI
// can run a single batch without the ticker.
func (p *Pipeline) RunCycle(ctx context.Context) error {
	started := time.Now()

	// Step 1: Generate telemetry
	batch := p.config.Generator.GenerateBatch(
		p.config.NumRequests, p.config.SpanHours, p.config.IntervalMinutes)
	p.config.EventPublisher.BatchGenerated(batch.BatchID, len(batch.Requests), len(batch.Metrics))
	metrics.Get().IncBatchesGenerated()
	metrics.Get().SetLastBatchSize(len(batch.Requests))

	// Step 2: Analyze
	report, warnings, err := p.analyze(ctx, &batch)
	if err != nil {
		return fmt.Errorf("analysis aborted for batch %s: %w", batch.BatchID, err)
	}
	p.config.EventPublisher.BatchAnalyzed(batch.BatchID, report.Anomalies)
	for tier, count := range report.Anomalies.TierCounts {
		if tier != models.TierNormal {
			metrics.Get().AddAnomalies(string(tier), count)
		}
	}
	if len(warnings) > 0 {
		logger.WithBatch(batch.BatchID).Warnf("classification produced %d data-quality warnings", len(warnings))
	}

	// Step 3: Ingest raw telemetry
	if err := p.ingest(ctx, &batch); err != nil {
		metrics.Get().IncIngestionFailures()
		p.config.EventPublisher.IngestionFailed(batch.BatchID, nil, err)
		return fmt.Errorf("ingestion failed for batch %s: %w", batch.BatchID, err)
	}

	// Step 4: Store the report
	report.Metadata.ProcessingTimeMs = time.Since(started).Milliseconds()
	stored, err := p.config.Warehouse.InsertAnalyticsReport(ctx, report, models.ReportComprehensive)
	if err != nil {
		p.config.EventPublisher.Error(batch.BatchID, "Failed to store report", err)
		return err
	}
	if stored {
		metrics.Get().IncReportsStored()
		p.config.EventPublisher.ReportStored(batch.BatchID, models.ReportComprehensive)
	}

	// Step 5: Quality checks
	if _, err := p.config.Warehouse.RunQualityChecks(ctx); err != nil {
		logger.WithBatch(batch.BatchID).Warnf("quality checks failed: %v", err)
	}

	metrics.Get().SetPipelineLatency(time.Since(started))
	logger.WithBatch(batch.BatchID).Infof(
		"Cycle complete: %d requests, %d metric samples, %d anomalous in %s",
		len(batch.Requests), len(batch.Metrics),
		report.Anomalies.AnomalousTotal, time.Since(started).Round(time.Millisecond),
	)
	return nil
}

func (p *Pipeline) analyze(ctx context.Context, batch *models.TelemetryBatch) (*models.AnalyticsReport, []classifier.Warning, error) {
	annotations, warnings, err := p.config.Classifier.ClassifyBatchParallel(
		ctx, batch.Requests, p.config.ClassifyWorkers)
	if err != nil {
		return nil, nil, err
	}

	summary := summarizeAnomalies(annotations, len(warnings))

	acc := aggregator.NewKPIAccumulator()
	for _, r := range batch.Requests {
		acc.Add(r)
	}

	report := &models.AnalyticsReport{
		BatchID:      batch.BatchID,
		RequestKPIs:  acc.Snapshot(),
		ServerHealth: aggregator.ComputeServerHealth(batch.Metrics),
		Patterns:     aggregator.ComputeTrafficPatterns(batch.Requests),
		Anomalies:    summary,
		Metadata: models.ReportMetadata{
			GeneratedAt:       time.Now().UTC(),
			RequestLogEntries: len(batch.Requests),
			ServerMetricCount: len(batch.Metrics),
		},
	}

	if start, end, ok := timeRange(batch.Requests); ok {
		report.Metadata.TimeRangeStart = &start
		report.Metadata.TimeRangeEnd = &end
	}

	if summary.TierCounts[models.TierCritical] > 0 {
		p.config.EventPublisher.Alert(batch.BatchID, models.SeverityCritical,
			fmt.Sprintf("%d critical anomalies in batch", summary.TierCounts[models.TierCritical]),
			summary)
	}

	return report, warnings, nil
}

// ingest writes both record streams through the circuit breaker, retrying
// the whole batch with backoff when chunks fail. The retry loop re-runs
// only when nothing was written; a partial write returns
// ErrPartialIngestion immediately, because replaying the batch would
// duplicate the committed chunks.
func (p *Pipeline) ingest(ctx context.Context, batch *models.TelemetryBatch) error {
	started := time.Now()
	defer func() { metrics.Get().SetIngestionLatency(time.Since(started)) }()

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.config.RetryBackoff * time.Duration(attempt)):
			}
		}

		err := p.config.Breaker.Execute(ctx, func(ctx context.Context) error {
			reqResult := p.config.Warehouse.InsertRequestBatch(ctx, batch.BatchID, batch.Requests)
			metrics.Get().AddRowsInserted("request_logs", reqResult.RowsInserted)
			metrics.Get().AddChunksFailed("request_logs", reqResult.ChunksFailed)

			metResult := p.config.Warehouse.InsertServerMetricBatch(ctx, batch.BatchID, batch.Metrics)
			metrics.Get().AddRowsInserted("server_metrics", metResult.RowsInserted)
			metrics.Get().AddChunksFailed("server_metrics", metResult.ChunksFailed)

			if !reqResult.Complete() || !metResult.Complete() {
				if reqResult.RowsInserted > 0 || metResult.RowsInserted > 0 {
					return fmt.Errorf("%w: request chunks failed %v, metric chunks failed %v",
						ErrPartialIngestion, reqResult.FailedChunks, metResult.FailedChunks)
				}
				return fmt.Errorf("ingestion wrote nothing: request chunks failed %v, metric chunks failed %v",
					reqResult.FailedChunks, metResult.FailedChunks)
			}

			p.config.EventPublisher.BatchIngested(batch.BatchID,
				reqResult.RowsInserted+metResult.RowsInserted,
				reqResult.ChunksCommitted+metResult.ChunksCommitted)
			metrics.Get().IncBatchesIngested()
			return nil
		})

		if err == nil {
			return nil
		}
		if errors.Is(err, ErrPartialIngestion) {
			logger.WithBatch(batch.BatchID).Errorf("ingestion stopped after partial write: %v", err)
			return err
		}
		lastErr = err

		logger.WithBatch(batch.BatchID).Warnf("ingestion attempt %d failed: %v", attempt+1, err)
	}

	return lastErr
}

// Purge applies retention windows and publishes the outcome.
func (p *Pipeline) Purge(ctx context.Context) error {
	result, err := p.config.Warehouse.Purge(ctx, p.config.Retention)
	if err != nil {
		return err
	}
	metrics.Get().IncPurgeRuns()
	p.config.EventPublisher.RetentionPurge(result.RowsDeleted)
	return nil
}

func summarizeAnomalies(annotations []models.AnomalyAnnotation, warningCount int) models.AnomalySummary {
	summary := models.AnomalySummary{
		TierCounts:   make(map[models.SeverityTier]int),
		WarningCount: warningCount,
	}
	for _, a := range annotations {
		summary.TierCounts[a.SeverityTier]++
		if a.AnomalyScore > 0 {
			summary.AnomalousTotal++
		}
	}
	return summary
}

func timeRange(records []models.RequestRecord) (start, end time.Time, ok bool) {
	if len(records) == 0 {
		return start, end, false
	}
	start, end = records[0].Timestamp, records[0].Timestamp
	for _, r := range records[1:] {
		if r.Timestamp.Before(start) {
			start = r.Timestamp
		}
		if r.Timestamp.After(end) {
			end = r.Timestamp
		}
	}
	return start, end, true
}
