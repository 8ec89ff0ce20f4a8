package aggregator

import (
	"time"

	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// KPIAccumulator folds request records into the sums a KPISnapshot needs.
// It is an explicit accumulator so shards can be combined with Merge;
// response times are retained in full because the P95 must be computed
// over the complete value set, never merged from shard-local percentiles.
type KPIAccumulator struct {
	total         int
	errorCount    int
	responseSum   float64
	responseTimes []float64
	retrySum      float64
	retryCount    int
	skippedValues int
	earliest      time.Time
	latest        time.Time
}

// NewKPIAccumulator returns an empty accumulator.
func NewKPIAccumulator() *KPIAccumulator {
	return &KPIAccumulator{}
}

// Add folds one record in. Malformed numeric fields are excluded from the
// affected average instead of aborting the batch.
func (a *KPIAccumulator) Add(r models.RequestRecord) {
	a.total++

	if r.IsError() {
		a.errorCount++
	}

	if r.ResponseTimeMs >= 0 {
		a.responseSum += float64(r.ResponseTimeMs)
		a.responseTimes = append(a.responseTimes, float64(r.ResponseTimeMs))
	} else {
		a.skippedValues++
	}

	if r.RetryRate >= 0 && r.RetryRate <= 1 {
		a.retrySum += r.RetryRate
		a.retryCount++
	} else {
		a.skippedValues++
	}

	if a.earliest.IsZero() || r.Timestamp.Before(a.earliest) {
		a.earliest = r.Timestamp
	}
	if a.latest.IsZero() || r.Timestamp.After(a.latest) {
		a.latest = r.Timestamp
	}
}

// Merge combines another accumulator into this one. The operation is
// associative, so per-shard accumulators can be folded in any order.
func (a *KPIAccumulator) Merge(other *KPIAccumulator) {
	if other == nil || other.total == 0 && other.skippedValues == 0 {
		return
	}

	a.total += other.total
	a.errorCount += other.errorCount
	a.responseSum += other.responseSum
	a.responseTimes = append(a.responseTimes, other.responseTimes...)
	a.retrySum += other.retrySum
	a.retryCount += other.retryCount
	a.skippedValues += other.skippedValues

	if a.earliest.IsZero() || (!other.earliest.IsZero() && other.earliest.Before(a.earliest)) {
		a.earliest = other.earliest
	}
	if other.latest.After(a.latest) {
		a.latest = other.latest
	}
}

// SkippedValues reports how many malformed numeric fields were excluded.
func (a *KPIAccumulator) SkippedValues() int {
	return a.skippedValues
}

// Snapshot computes the KPISnapshot for everything folded in so far.
// Ratio fields stay nil when their denominator is zero: an empty batch
// yields no averages, and a zero time span yields no requests-per-second
// reading rather than a misleading zero.
func (a *KPIAccumulator) Snapshot() models.KPISnapshot {
	snap := models.KPISnapshot{TotalRequests: a.total}
	if a.total == 0 {
		return snap
	}

	if span := a.latest.Sub(a.earliest).Seconds(); span > 0 {
		rps := Round2(float64(a.total) / span)
		snap.RequestsPerSecond = &rps
	}

	if n := len(a.responseTimes); n > 0 {
		avg := Round2(a.responseSum / float64(n))
		p95 := Round2(Percentile(a.responseTimes, 95))
		snap.AvgResponseTimeMs = &avg
		snap.P95ResponseTimeMs = &p95
	}

	errRate := Round2(100 * float64(a.errorCount) / float64(a.total))
	snap.ErrorRatePercent = &errRate

	if a.retryCount > 0 {
		avgRetry := Round2(a.retrySum / float64(a.retryCount))
		snap.AvgRetryRate = &avgRetry
	}

	return snap
}

// ComputeKPIs builds a KPISnapshot from a batch of request records. Pure
// single-pass reduction: no historical state is merged, each call reflects
// exactly the records passed to it.
func ComputeKPIs(requests []models.RequestRecord) models.KPISnapshot {
	acc := NewKPIAccumulator()
	for _, r := range requests {
		acc.Add(r)
	}
	return acc.Snapshot()
}

// ComputeTrafficPatterns summarizes temporal traffic behavior for the
// analytics report.
func ComputeTrafficPatterns(requests []models.RequestRecord) models.TrafficPatterns {
	patterns := models.TrafficPatterns{
		HourlyVolume:     make(map[int]int),
		HourlyAvgLatency: make(map[int]float64),
	}

	latencySums := make(map[int]float64)
	latencyCounts := make(map[int]int)

	for _, r := range requests {
		hour := r.Timestamp.UTC().Hour()
		patterns.HourlyVolume[hour]++

		if r.ResponseTimeMs >= 0 {
			latencySums[hour] += float64(r.ResponseTimeMs)
			latencyCounts[hour]++
		}

		if models.IsWeekend(r.Timestamp) {
			patterns.WeekendRequests++
		} else {
			patterns.WeekdayRequests++
		}
	}

	for hour, count := range latencyCounts {
		patterns.HourlyAvgLatency[hour] = Round2(latencySums[hour] / float64(count))
	}

	return patterns
}
