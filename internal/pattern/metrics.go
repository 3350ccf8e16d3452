package pattern

import (
	"math"
	"time"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/stats"
)

const (
	stableTrendRatio = 0.01
	slopeEpsilon     = 1e-6
	seasonalityMin   = 4
	fullSampleSize   = 12
)

// AnalyzeTemporalStability classifies the direction of a date-ordered amount
// series and scores how closely it hugs its average.
func AnalyzeTemporalStability(amounts []float64) model.StabilityAnalysis {
	if len(amounts) < 2 {
		return model.StabilityAnalysis{Trend: model.TrendInsufficient}
	}

	avg := stats.Mean(amounts)
	lo, hi := stats.MinMax(amounts)
	result := model.StabilityAnalysis{Min: lo, Max: hi, Average: avg}

	if avg != 0 {
		deviation := 0.0
		for _, a := range amounts {
			deviation += math.Abs(a-avg) / math.Abs(avg)
		}
		deviation /= float64(len(amounts))
		result.Stability = stats.Clamp01(1 - math.Min(1, deviation))
	}

	first, last := amounts[0], amounts[len(amounts)-1]
	change := last - first
	switch {
	case change == 0 || math.Abs(change) < stableTrendRatio*math.Abs(first):
		result.Trend = model.TrendStable
	case change > 0:
		result.Trend = model.TrendIncreasing
	default:
		result.Trend = model.TrendDecreasing
	}
	return result
}

// CalculateAdvancedMetrics derives trend, pattern and seasonality strength
// from a date-ordered amount series and blends them into a reliability score.
func CalculateAdvancedMetrics(amounts []float64, dates []time.Time) model.AdvancedMetrics {
	n := len(amounts)
	if n == 0 {
		return model.AdvancedMetrics{}
	}

	avg := stats.Mean(amounts)
	std := stats.PopulationStdDev(amounts)

	result := model.AdvancedMetrics{
		Mean:       avg,
		StdDev:     std,
		SampleSize: n,
	}
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		if result.Start.IsZero() || d.Before(result.Start) {
			result.Start = d
		}
		if d.After(result.End) {
			result.End = d
		}
	}

	result.TrendStrength = stats.Clamp01(math.Min(math.Abs(leastSquaresSlope(amounts))/(math.Abs(avg)+slopeEpsilon), 1))

	switch {
	case std == 0 && n > 1:
		result.PatternStrength = 1
	case std == 0, avg == 0:
		result.PatternStrength = 0
	default:
		result.PatternStrength = stats.Clamp01(1 - math.Min(std/math.Abs(avg), 1))
	}

	result.Seasonality = DetectSeasonality(amounts)

	sampleFactor := math.Min(float64(n)/fullSampleSize, 1)
	result.Reliability = stats.Clamp01(sampleFactor*0.4 +
		result.PatternStrength*0.3 +
		(1-result.TrendStrength)*0.2 +
		result.Seasonality*0.1)
	return result
}

// leastSquaresSlope fits amount against position in the series.
func leastSquaresSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	xMean := float64(n-1) / 2
	yMean := stats.Mean(values)

	var num, den float64
	for i, y := range values {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// DetectSeasonality correlates the first half of a date-ordered series with
// the second half and maps the coefficient onto [0,1]. This is a half-split
// approximation, not an autocorrelation or spectral analysis.
func DetectSeasonality(amounts []float64) float64 {
	if len(amounts) < seasonalityMin {
		return 0
	}

	half := len(amounts) / 2
	first := centered(amounts[:half])
	second := centered(amounts[half : 2*half])

	var sumXY, sumXX, sumYY float64
	for i := range first {
		sumXY += first[i] * second[i]
		sumXX += first[i] * first[i]
		sumYY += second[i] * second[i]
	}

	den := math.Sqrt(sumXX * sumYY)
	if den == 0 {
		return 0
	}
	r := sumXY / den
	return stats.Clamp01((r + 1) / 2)
}

func centered(values []float64) []float64 {
	m := stats.Mean(values)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v - m
	}
	return out
}
