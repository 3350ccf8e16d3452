package model

import "time"

// Frequency labels for recurring series.
const (
	FrequencyDaily     = "daily"
	FrequencyWeekly    = "weekly"
	FrequencyBiweekly  = "biweekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyAnnually  = "annually"
)

// Trend directions.
const (
	TrendStable     = "stable"
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
)

// TrendInsufficient marks series too short to have a direction.
const TrendInsufficient = "insufficient_data"

// SeriesPoint is one dated observation of a description cluster.
type SeriesPoint struct {
	Date    time.Time
	Account string
	Amount  float64
}

// RecurrenceAnalysis describes the regularity of the gaps in a series.
type RecurrenceAnalysis struct {
	SuggestedFrequency     string
	AverageInterval        float64
	IntervalVariance       float64
	CoefficientOfVariation float64
	Confidence             float64
	SampleSize             int
	IsRecurring            bool
}

// StabilityAnalysis describes how steady the amounts in a series are.
type StabilityAnalysis struct {
	Trend     string
	Stability float64
	Min       float64
	Max       float64
	Average   float64
}

// AdvancedMetrics combines trend, pattern and seasonality into a reliability.
type AdvancedMetrics struct {
	Start           time.Time
	End             time.Time
	Mean            float64
	StdDev          float64
	TrendStrength   float64
	PatternStrength float64
	Seasonality     float64
	Reliability     float64
	SampleSize      int
}

// PatternProfile aggregates the history of one normalized description.
type PatternProfile struct {
	FirstDate      time.Time
	LastDate       time.Time
	Description    string
	Recurrence     RecurrenceAnalysis
	Stability      StabilityAnalysis
	Metrics        AdvancedMetrics
	Mean           float64
	Variance       float64
	Seasonality    float64
	Confidence     float64
	Frequency      int
	HasSeasonality bool
}
