package generator

import "math/rand"

// weightedChoice picks an index with probability proportional to its weight.
type weightedChoice struct {
	cumulative []int
	total      int
}

func newWeightedChoice(weights []int) weightedChoice {
	cum := make([]int, len(weights))
	total := 0
	for i, w := range weights {
		total += w
		cum[i] = total
	}
	return weightedChoice{cumulative: cum, total: total}
}

func (w weightedChoice) Pick(rng *rand.Rand) int {
	n := rng.Intn(w.total)
	for i, c := range w.cumulative {
		if n < c {
			return i
		}
	}
	return len(w.cumulative) - 1
}

// betaSample draws from Beta(a, b) for integer shape parameters, using the
// identity Beta(a,b) = Ga/(Ga+Gb) with Gamma(k,1) as a sum of k unit
// exponentials. Shapes here are small, so the loop is cheap.
func betaSample(rng *rand.Rand, a, b int) float64 {
	ga := gammaIntSample(rng, a)
	gb := gammaIntSample(rng, b)
	if ga+gb == 0 {
		return 0
	}
	return ga / (ga + gb)
}

func gammaIntSample(rng *rand.Rand, k int) float64 {
	sum := 0.0
	for i := 0; i < k; i++ {
		sum += rng.ExpFloat64()
	}
	return sum
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
