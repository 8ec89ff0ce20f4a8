package classifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

func defaultClassifier() *Classifier {
	return New(Config{})
}

func TestClassify_AllSignalsTriggered(t *testing.T) {
	c := defaultClassifier()

	r := models.RequestRecord{
		Timestamp:      time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), // Monday
		Method:         models.MethodGet,
		StatusCode:     500,
		ResponseTimeMs: 1500,
		RetryRate:      0.4,
	}

	a := c.Classify(r)

	assert.True(t, a.IsFailure)
	assert.True(t, a.IsLatencyOutlier)
	assert.True(t, a.IsRetrySpike)
	assert.Equal(t, 3, a.AnomalyScore)
	assert.Equal(t, models.TierCritical, a.SeverityTier)
	assert.Equal(t, models.FailureInternalError, a.FailureType)
	assert.Equal(t, models.LatencySlow, a.LatencyBucket)
	assert.Equal(t, models.CategoryRead, a.MethodCategory)
	assert.False(t, a.IsWeekend)
}

func TestClassify_CleanRequest(t *testing.T) {
	c := defaultClassifier()

	r := models.RequestRecord{
		Timestamp:      time.Date(2025, 6, 7, 10, 0, 0, 0, time.UTC), // Saturday
		Method:         models.MethodPost,
		StatusCode:     200,
		ResponseTimeMs: 120,
		RetryRate:      0.0,
	}

	a := c.Classify(r)

	assert.Equal(t, 0, a.AnomalyScore)
	assert.Equal(t, models.TierNormal, a.SeverityTier)
	assert.Equal(t, models.LatencyFast, a.LatencyBucket)
	assert.Equal(t, models.CategoryWrite, a.MethodCategory)
	assert.Equal(t, models.FailureOther, a.FailureType)
	assert.True(t, a.IsWeekend)
}

func TestClassify_ScoreMatchesSignals(t *testing.T) {
	c := defaultClassifier()

	tests := []struct {
		name          string
		record        models.RequestRecord
		expectedScore int
		expectedTier  models.SeverityTier
	}{
		{
			name:          "failure only",
			record:        models.RequestRecord{StatusCode: 503, ResponseTimeMs: 100, RetryRate: 0.1},
			expectedScore: 1,
			expectedTier:  models.TierMinor,
		},
		{
			name:          "latency and retry",
			record:        models.RequestRecord{StatusCode: 200, ResponseTimeMs: 2500, RetryRate: 0.5},
			expectedScore: 2,
			expectedTier:  models.TierModerate,
		},
		{
			name:          "boundary values do not trigger",
			record:        models.RequestRecord{StatusCode: 200, ResponseTimeMs: 1000, RetryRate: 0.3},
			expectedScore: 0,
			expectedTier:  models.TierNormal,
		},
		{
			name:          "504 gateway timeout",
			record:        models.RequestRecord{StatusCode: 504, ResponseTimeMs: 1001, RetryRate: 0.0},
			expectedScore: 2,
			expectedTier:  models.TierModerate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := c.Classify(tt.record)
			assert.Equal(t, tt.expectedScore, a.AnomalyScore)
			assert.Equal(t, tt.expectedTier, a.SeverityTier)

			signals := 0
			if a.IsFailure {
				signals++
			}
			if a.IsLatencyOutlier {
				signals++
			}
			if a.IsRetrySpike {
				signals++
			}
			assert.Equal(t, signals, a.AnomalyScore)
		})
	}
}

func TestClassify_NonFailureErrorStatuses(t *testing.T) {
	c := defaultClassifier()

	// 4xx and 502 are errors but not backend failure signals.
	for _, status := range []int{400, 404, 429, 502} {
		a := c.Classify(models.RequestRecord{StatusCode: status, ResponseTimeMs: 100})
		assert.False(t, a.IsFailure, "status %d", status)
	}
}

func TestClassify_MalformedStatusIsNeverFailure(t *testing.T) {
	c := defaultClassifier()

	for _, status := range []int{0, -1, 999, 65535} {
		a := c.Classify(models.RequestRecord{StatusCode: status, ResponseTimeMs: 100})
		assert.False(t, a.IsFailure, "status %d", status)
		assert.Equal(t, models.FailureOther, a.FailureType)
	}
}

func TestClassify_IsPure(t *testing.T) {
	c := defaultClassifier()
	r := models.RequestRecord{StatusCode: 500, ResponseTimeMs: 1200, RetryRate: 0.35}

	first := c.Classify(r)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(r))
	}
}

func TestClassify_CustomThresholds(t *testing.T) {
	c := New(Config{
		FailureStatuses:  []int{500},
		LatencyOutlierMs: 200,
		RetrySpikeRate:   0.1,
	})

	a := c.Classify(models.RequestRecord{StatusCode: 503, ResponseTimeMs: 250, RetryRate: 0.15})

	assert.False(t, a.IsFailure, "503 not in custom failure set")
	assert.True(t, a.IsLatencyOutlier)
	assert.True(t, a.IsRetrySpike)
	assert.Equal(t, 2, a.AnomalyScore)
}

func TestClassifyBatch_WarningsForMalformedFields(t *testing.T) {
	c := defaultClassifier()

	records := []models.RequestRecord{
		{StatusCode: 200, ResponseTimeMs: 100, RetryRate: 0.1},
		{StatusCode: 999, ResponseTimeMs: 100, RetryRate: 0.1},
		{StatusCode: 200, ResponseTimeMs: -5, RetryRate: 1.5},
	}

	annotations, warnings := c.ClassifyBatch(records)

	require.Len(t, annotations, 3)
	require.Len(t, warnings, 3)

	assert.Equal(t, 1, warnings[0].Index)
	assert.Equal(t, "status_code", warnings[0].Field)
	assert.Equal(t, 2, warnings[1].Index)
	assert.Equal(t, 2, warnings[2].Index)
}

func TestClassifyBatchParallel_MatchesSerial(t *testing.T) {
	c := defaultClassifier()

	records := make([]models.RequestRecord, 200)
	for i := range records {
		records[i] = models.RequestRecord{
			Timestamp:      time.Date(2025, 6, 2, i%24, 0, 0, 0, time.UTC),
			StatusCode:     200 + (i%5)*100,
			ResponseTimeMs: i * 20,
			RetryRate:      float64(i%10) / 10,
		}
	}

	serial, serialWarnings := c.ClassifyBatch(records)
	parallel, parallelWarnings, err := c.ClassifyBatchParallel(context.Background(), records, 8)

	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
	assert.Equal(t, serialWarnings, parallelWarnings)
}

func TestClassifyBatchParallel_SmallBatchFallsBack(t *testing.T) {
	c := defaultClassifier()

	records := []models.RequestRecord{{StatusCode: 500, ResponseTimeMs: 100}}
	annotations, _, err := c.ClassifyBatchParallel(context.Background(), records, 8)

	require.NoError(t, err)
	require.Len(t, annotations, 1)
	assert.True(t, annotations[0].IsFailure)
}

func TestClassifyBatchParallel_CanceledContextReturnsError(t *testing.T) {
	c := defaultClassifier()

	records := make([]models.RequestRecord, 100)
	for i := range records {
		records[i] = models.RequestRecord{StatusCode: 200, ResponseTimeMs: 100}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	annotations, warnings, err := c.ClassifyBatchParallel(ctx, records, 8)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, annotations, "no half-annotated batch may escape")
	assert.Nil(t, warnings)
}
