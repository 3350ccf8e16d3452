// Package stats holds the small descriptive statistics the engine needs.
// Every function is defined for empty input.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, or zero for no values.
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

// PopulationVariance divides by n.
func PopulationVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sumSquares(values) / float64(len(values))
}

// PopulationStdDev is the square root of PopulationVariance.
func PopulationStdDev(values []float64) float64 {
	return math.Sqrt(PopulationVariance(values))
}

// SampleStdDev divides by n-1 and is zero below two values.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return math.Sqrt(sumSquares(values) / float64(len(values)-1))
}

func sumSquares(values []float64) float64 {
	m := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum
}

// Median returns the middle value, averaging the two middle values for an
// even count.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// MinMax returns the smallest and largest value.
func MinMax(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// Clamp01 bounds v to [0,1]; NaN maps to zero.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return min(v, 1)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// Bucket rounds v to the nearest multiple of width. A zero width leaves v
// as its own bucket.
func Bucket(v, width float64) float64 {
	width = math.Abs(width)
	if width == 0 {
		return v
	}
	return math.Round(v/width) * width
}
