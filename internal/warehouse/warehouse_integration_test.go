package warehouse

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FCHEHIDI/lb-analytics/pkg/config"
	"github.com/FCHEHIDI/lb-analytics/pkg/database"
	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// openTestWarehouse connects to the database named by LBANALYTICS_TEST_DSN.
// Without it the integration tests are skipped, so the regular unit run
// stays database-free.
func openTestWarehouse(t *testing.T, cfg config.WarehouseConfig) *Warehouse {
	t.Helper()

	dsn := os.Getenv("LBANALYTICS_TEST_DSN")
	if dsn == "" {
		t.Skip("LBANALYTICS_TEST_DSN not set")
	}

	raw, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	db := &database.DB{DB: raw}
	require.NoError(t, db.PingContext(context.Background()))

	wh := New(db, cfg)
	require.NoError(t, wh.EnsureSchema(context.Background()))
	return wh
}

func testRequestRecord(ts time.Time, status int) models.RequestRecord {
	return models.RequestRecord{
		Timestamp:      ts,
		ServerID:       "server-001",
		Region:         "us-east-1",
		Method:         models.MethodGet,
		StatusCode:     status,
		ResponseTimeMs: 120,
		RetryRate:      0.05,
		BytesSent:      2048,
		ClientIP:       "192.168.10.20",
		UserAgent:      "integration-test/1.0",
	}
}

func TestIntegration_ConcurrentSchemaSetup(t *testing.T) {
	wh := openTestWarehouse(t, config.WarehouseConfig{})

	// Both runs must succeed: they serialize on the migration advisory
	// lock, which is transaction-scoped and therefore released by the
	// same session that took it.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			errs[i] = wh.EnsureSchema(ctx)
		}(i)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
}

func TestIntegration_InsertRequestBatch_ChunkAtomicity(t *testing.T) {
	wh := openTestWarehouse(t, config.WarehouseConfig{ChunkSize: 2})
	ctx := context.Background()

	before, err := wh.Requests().Count(ctx)
	require.NoError(t, err)

	now := time.Now().UTC()
	records := []models.RequestRecord{
		testRequestRecord(now, 200),
		testRequestRecord(now.Add(time.Second), 503),
		testRequestRecord(now.Add(2*time.Second), 200),
		testRequestRecord(now.Add(3*time.Second), 999), // violates the status CHECK
	}

	result := wh.InsertRequestBatch(ctx, uuid.NewString(), records)

	assert.Equal(t, 2, result.RowsInserted, "only the clean chunk lands")
	assert.Equal(t, 1, result.ChunksCommitted)
	assert.Equal(t, 1, result.ChunksFailed)
	assert.Equal(t, []int{1}, result.FailedChunks)
	assert.False(t, result.Complete())

	after, err := wh.Requests().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+2, after)
}

func TestIntegration_AnomalyViewClassifies(t *testing.T) {
	wh := openTestWarehouse(t, config.WarehouseConfig{})
	ctx := context.Background()

	rec := testRequestRecord(time.Now().UTC(), 500)
	rec.ResponseTimeMs = 1500
	rec.RetryRate = 0.4

	result := wh.InsertRequestBatch(ctx, uuid.NewString(), []models.RequestRecord{rec})
	require.True(t, result.Complete())

	rows, err := wh.Requests().ListAnomalies(ctx, 3, 10)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	top := rows[0].Annotation
	assert.True(t, top.IsFailure)
	assert.True(t, top.IsLatencyOutlier)
	assert.True(t, top.IsRetrySpike)
	assert.Equal(t, 3, top.AnomalyScore)
	assert.Equal(t, models.TierCritical, top.SeverityTier)
	assert.Equal(t, models.FailureInternalError, top.FailureType)
}

func TestIntegration_ReportIdempotency(t *testing.T) {
	wh := openTestWarehouse(t, config.WarehouseConfig{})
	ctx := context.Background()

	rps := 1.5
	report := &models.AnalyticsReport{
		BatchID: uuid.NewString(),
		Metadata: models.ReportMetadata{
			GeneratedAt:       time.Now().UTC(),
			RequestLogEntries: 10,
			ProcessingTimeMs:  42,
		},
		RequestKPIs: models.KPISnapshot{
			TotalRequests:     10,
			RequestsPerSecond: &rps,
		},
	}

	stored, err := wh.InsertAnalyticsReport(ctx, report, models.ReportComprehensive)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = wh.InsertAnalyticsReport(ctx, report, models.ReportComprehensive)
	require.NoError(t, err)
	assert.False(t, stored, "same batch id must not produce a second report")
}

func TestIntegration_QualityChecksAndPurge(t *testing.T) {
	wh := openTestWarehouse(t, config.WarehouseConfig{})
	ctx := context.Background()

	metrics, err := wh.RunQualityChecks(ctx)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "request_logs", metrics[0].TableName)
	assert.Equal(t, "server_metrics", metrics[1].TableName)

	// Generous windows: fresh test data must survive.
	before, err := wh.Requests().Count(ctx)
	require.NoError(t, err)

	purged, err := wh.Purge(ctx, config.RetentionConfig{RawDays: 3650, ReportDays: 3650})
	require.NoError(t, err)
	assert.Contains(t, purged.RowsDeleted, "request_logs")

	after, err := wh.Requests().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
