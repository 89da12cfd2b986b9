// Package rules holds the anomaly and recommendation rule set. Rule functions
// are pure: they read row slices produced by the warehouse and return
// candidates without persisting anything.
package rules

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PStdDev returns the population standard deviation of values, 0 when there
// are fewer than two observations.
func PStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mu := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - mu
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// Median returns the median of values, 0 for an empty slice.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
