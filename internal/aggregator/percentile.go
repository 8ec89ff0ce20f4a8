package aggregator

import (
	"math"
	"sort"
)

// Round2 rounds to two decimal places, half away from zero. Every rate and
// average the engine reports goes through this so results are reproducible
// across implementations.
func Round2(x float64) float64 {
	return math.Trunc(x*100+math.Copysign(0.5, x)) / 100
}

// Percentile computes the p-th percentile (0-100) of values using linear
// interpolation between closest ranks. It needs global visibility into the
// full value set: merging shard-local percentiles is not equivalent and is
// deliberately unsupported.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
