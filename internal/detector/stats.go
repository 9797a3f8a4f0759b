package detector

import (
	"math"
	"sort"
)

// mean returns the arithmetic mean, 0 for an empty sample
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// popStdDev returns the population standard deviation,
// sqrt(avg((x-mean)^2)), 0 for an empty sample
func popStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// zScore returns how many standard deviations v lies above the mean.
// With a degenerate (zero) stddev, any excess over the mean is +Inf
// rather than a division-by-zero, so uniform-team outliers still flag.
func zScore(v, mean, stdDev float64) float64 {
	if stdDev == 0 {
		if v > mean {
			return math.Inf(1)
		}
		return 0
	}
	return (v - mean) / stdDev
}

// percentileNearestRank returns the nearest-rank percentile of the sample,
// using index = floor(p * n) on the ascending sort. Returns 0 for an
// empty sample.
func percentileNearestRank(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(math.Floor(p * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
