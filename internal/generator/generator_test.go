package generator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FCHEHIDI/lb-analytics/pkg/config"
	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

func seededGenerator(seed int64) *Generator {
	return New(config.GeneratorConfig{NumServers: 10, Seed: seed})
}

func TestGenerateRequests_FieldRanges(t *testing.T) {
	gen := seededGenerator(42)
	records := gen.GenerateRequests(2000, 24)

	require.Len(t, records, 2000)

	validStatuses := make(map[int]bool)
	for _, s := range statusCodes {
		validStatuses[s] = true
	}
	validMethods := make(map[models.Method]bool)
	for _, m := range requestMethods {
		validMethods[m] = true
	}

	for _, r := range records {
		assert.True(t, validStatuses[r.StatusCode], "status %d", r.StatusCode)
		assert.True(t, validMethods[r.Method], "method %s", r.Method)
		assert.GreaterOrEqual(t, r.ResponseTimeMs, 1)
		assert.GreaterOrEqual(t, r.RetryRate, 0.0)
		assert.LessOrEqual(t, r.RetryRate, 1.0)
		assert.GreaterOrEqual(t, r.BytesSent, int64(500))
		assert.LessOrEqual(t, r.BytesSent, int64(50000))
		assert.Regexp(t, `^server-\d{3}$`, r.ServerID)
		assert.Contains(t, defaultRegions, r.Region)
		assert.NotEmpty(t, r.ClientIP)
		assert.NotEmpty(t, r.UserAgent)
	}
}

func TestGenerateRequests_Reproducible(t *testing.T) {
	a := seededGenerator(7).GenerateRequests(100, 24)
	b := seededGenerator(7).GenerateRequests(100, 24)

	require.Len(t, b, len(a))
	for i := range a {
		// Timestamps are relative to wall clock, so compare the
		// deterministic fields only.
		assert.Equal(t, a[i].ServerID, b[i].ServerID)
		assert.Equal(t, a[i].StatusCode, b[i].StatusCode)
		assert.Equal(t, a[i].ResponseTimeMs, b[i].ResponseTimeMs)
		assert.Equal(t, a[i].RetryRate, b[i].RetryRate)
	}
}

func TestGenerateRequests_StatusDistributionSkewsToSuccess(t *testing.T) {
	gen := seededGenerator(99)
	records := gen.GenerateRequests(5000, 24)

	success := 0
	for _, r := range records {
		if r.StatusCode < 400 {
			success++
		}
	}

	// Success weights are 85 of 100; allow generous slack.
	assert.Greater(t, float64(success)/float64(len(records)), 0.75)
}

func TestGenerateServerMetrics_Shape(t *testing.T) {
	gen := New(config.GeneratorConfig{NumServers: 5, Seed: 1})
	samples := gen.GenerateServerMetrics(24, 60)

	require.Len(t, samples, 5*24)

	servers := make(map[string]bool)
	for _, s := range samples {
		servers[s.ServerID] = true
		assert.GreaterOrEqual(t, s.CPUUsagePercent, 0.0)
		assert.LessOrEqual(t, s.CPUUsagePercent, 100.0)
		assert.GreaterOrEqual(t, s.MemoryUsagePercent, 0.0)
		assert.LessOrEqual(t, s.MemoryUsagePercent, 100.0)
		assert.GreaterOrEqual(t, s.DiskUsagePercent, 35.0)
		assert.LessOrEqual(t, s.DiskUsagePercent, 85.0)
		assert.GreaterOrEqual(t, s.NetworkInMbps, 0.0)
		assert.GreaterOrEqual(t, s.NetworkOutMbps, 0.0)
		assert.GreaterOrEqual(t, s.ActiveConnections, 0)
		assert.GreaterOrEqual(t, s.RequestsPerSecond, 0.0)
		assert.Contains(t, []int{0, 1, 2, 3}, s.BackendHealthFailures)
	}
	assert.Len(t, servers, 5)
}

func TestGenerateBatch(t *testing.T) {
	gen := seededGenerator(3)
	batch := gen.GenerateBatch(100, 24, 60)

	assert.NotEmpty(t, batch.BatchID)
	assert.Len(t, batch.Requests, 100)
	assert.Len(t, batch.Metrics, 10*24)
}

func TestBetaSample_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		v := betaSample(rng, 5, 15)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestBetaSample_MeanNearExpectation(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	sum := 0.0
	n := 20000
	for i := 0; i < n; i++ {
		sum += betaSample(rng, 2, 30)
	}
	mean := sum / float64(n)

	// Beta(2,30) has mean 2/32 = 0.0625.
	assert.InDelta(t, 0.0625, mean, 0.01)
}

func TestWeightedChoice_RespectsWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	choice := newWeightedChoice([]int{90, 10})

	counts := [2]int{}
	for i := 0; i < 10000; i++ {
		counts[choice.Pick(rng)]++
	}

	assert.Greater(t, counts[0], 8000)
	assert.Less(t, counts[1], 2000)
}

func TestTemporalFactor(t *testing.T) {
	assert.Equal(t, 1.3, temporalFactor(12))
	assert.Equal(t, 0.7, temporalFactor(23))
	assert.Equal(t, 0.7, temporalFactor(3))
	assert.Equal(t, 1.0, temporalFactor(8))
}
