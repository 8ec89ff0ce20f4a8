package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FCHEHIDI/lb-analytics/internal/events"
	"github.com/FCHEHIDI/lb-analytics/internal/resilience"
	"github.com/FCHEHIDI/lb-analytics/internal/warehouse"
	"github.com/FCHEHIDI/lb-analytics/pkg/config"
	"github.com/FCHEHIDI/lb-analytics/pkg/database/queries"
	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// stubStore scripts InsertRequestBatch results per attempt and records how
// often the pipeline called it.
type stubStore struct {
	mu              sync.Mutex
	requestAttempts int
	requestResults  []warehouse.BatchResult
}

func (s *stubStore) InsertRequestBatch(_ context.Context, _ string, _ []models.RequestRecord) warehouse.BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.requestAttempts
	s.requestAttempts++
	if i >= len(s.requestResults) {
		i = len(s.requestResults) - 1
	}
	return s.requestResults[i]
}

func (s *stubStore) InsertServerMetricBatch(_ context.Context, _ string, _ []models.ServerMetricSample) warehouse.BatchResult {
	return warehouse.BatchResult{}
}

func (s *stubStore) InsertAnalyticsReport(_ context.Context, _ *models.AnalyticsReport, _ models.ReportType) (bool, error) {
	return true, nil
}

func (s *stubStore) RunQualityChecks(_ context.Context) ([]models.DataQualityMetric, error) {
	return nil, nil
}

func (s *stubStore) Purge(_ context.Context, _ config.RetentionConfig) (queries.PurgeResult, error) {
	return queries.PurgeResult{RowsDeleted: map[string]int64{}}, nil
}

func (s *stubStore) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestAttempts
}

func newIngestPipeline(store Store, maxRetries int) *Pipeline {
	return NewPipeline(PipelineConfig{
		MaxRetries:   maxRetries,
		RetryBackoff: time.Millisecond,
		Warehouse:    store,
		Breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:        "test-warehouse",
			MaxFailures: 100,
			Timeout:     time.Minute,
		}),
		EventPublisher: events.NewPublisher(events.NewEventBus(16)),
	})
}

func testBatch() models.TelemetryBatch {
	return models.TelemetryBatch{
		BatchID:  "batch-1",
		Requests: make([]models.RequestRecord, 4),
	}
}

func TestIngest_PartialWriteIsNeverRetried(t *testing.T) {
	store := &stubStore{
		requestResults: []warehouse.BatchResult{
			{RowsInserted: 2, ChunksCommitted: 1, ChunksFailed: 1, FailedChunks: []int{1}},
		},
	}
	p := newIngestPipeline(store, 3)

	batch := testBatch()
	err := p.ingest(context.Background(), &batch)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialIngestion)
	assert.Equal(t, 1, store.attempts(), "a partially committed batch must not be replayed")
}

func TestIngest_ZeroWriteFailureIsRetried(t *testing.T) {
	store := &stubStore{
		requestResults: []warehouse.BatchResult{
			{ChunksFailed: 2, FailedChunks: []int{0, 1}},
		},
	}
	p := newIngestPipeline(store, 2)

	batch := testBatch()
	err := p.ingest(context.Background(), &batch)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPartialIngestion)
	assert.Equal(t, 3, store.attempts(), "initial attempt plus two retries")
}

func TestIngest_RetrySucceedsWhenNothingWasWritten(t *testing.T) {
	store := &stubStore{
		requestResults: []warehouse.BatchResult{
			{ChunksFailed: 2, FailedChunks: []int{0, 1}},
			{RowsInserted: 4, ChunksCommitted: 2},
		},
	}
	p := newIngestPipeline(store, 3)

	batch := testBatch()
	err := p.ingest(context.Background(), &batch)

	require.NoError(t, err)
	assert.Equal(t, 2, store.attempts())
}

func TestIngest_CleanFirstAttempt(t *testing.T) {
	store := &stubStore{
		requestResults: []warehouse.BatchResult{
			{RowsInserted: 4, ChunksCommitted: 2},
		},
	}
	p := newIngestPipeline(store, 3)

	bus := events.NewEventBus(16)
	ch := bus.Subscribe(models.EventTypeBatchIngested)
	p.config.EventPublisher = events.NewPublisher(bus)

	batch := testBatch()
	require.NoError(t, p.ingest(context.Background(), &batch))
	assert.Equal(t, 1, store.attempts())

	select {
	case event := <-ch:
		assert.Equal(t, "batch-1", event.BatchID)
	default:
		t.Fatal("expected a batch-ingested event")
	}
}
