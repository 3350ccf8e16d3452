package pattern

import (
	"math"
	"sort"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/stats"
)

// maxRecurringCV is the interval coefficient of variation below which a
// series counts as recurring.
const maxRecurringCV = 0.5

// AnalyzeRecurringPatterns measures how regular the gaps between the points
// of a series are and labels the typical gap.
func AnalyzeRecurringPatterns(series []model.SeriesPoint) model.RecurrenceAnalysis {
	result := model.RecurrenceAnalysis{SampleSize: len(series)}
	if len(series) < 2 {
		return result
	}

	sorted := make([]model.SeriesPoint, len(series))
	copy(sorted, series)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	intervals := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, wholeDays(sorted[i].Date.Sub(sorted[i-1].Date).Hours()))
	}

	avg := stats.Mean(intervals)
	variance := stats.PopulationVariance(intervals)
	cv := math.Inf(1)
	if avg > 0 {
		cv = math.Sqrt(variance) / avg
	}

	base := 0.0
	if cv < 1 {
		base = 1 - cv
	}

	result.AverageInterval = avg
	result.IntervalVariance = variance
	result.CoefficientOfVariation = cv
	result.IsRecurring = cv < maxRecurringCV
	result.Confidence = stats.Clamp01(base * math.Min(float64(len(intervals))/6, 1))
	result.SuggestedFrequency = FrequencyLabel(avg)
	return result
}

// wholeDays truncates a span in hours to whole days.
func wholeDays(hours float64) float64 {
	return math.Floor(hours / 24)
}

// FrequencyLabel names an average interval in days.
func FrequencyLabel(avgDays float64) string {
	switch {
	case avgDays < 2:
		return model.FrequencyDaily
	case avgDays < 8:
		return model.FrequencyWeekly
	case avgDays < 15:
		return model.FrequencyBiweekly
	case avgDays < 32:
		return model.FrequencyMonthly
	case avgDays < 95:
		return model.FrequencyQuarterly
	default:
		return model.FrequencyAnnually
	}
}
