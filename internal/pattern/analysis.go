package pattern

import (
	"sort"
	"time"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/stats"
	"github.com/Veraticus/tally/internal/textmatch"
)

// ClusterKey groups amounts by description and booked account.
type ClusterKey struct {
	Description string
	Account     string
}

// AmountStats summarizes one amount cluster.
type AmountStats struct {
	Count    int
	Mean     float64
	Variance float64
	Min      float64
	Max      float64
}

// Analysis is the aggregate view AnalyzePatterns builds over a history.
type Analysis struct {
	Explanations   map[string]map[string]int // description -> explanation -> count
	AmountClusters map[ClusterKey][]float64
	ClusterStats   map[ClusterKey]AmountStats
	Series         map[string][]model.SeriesPoint
	Profiles       map[string]model.PatternProfile
}

// ExplanationCount returns how often explanation was used for description.
func (a Analysis) ExplanationCount(description, explanation string) int {
	return a.Explanations[description][explanation]
}

// AnalyzePatterns groups transactions by normalized description and builds
// a profile for every description seen at least twice with a date and a
// non-zero amount.
func AnalyzePatterns(transactions []model.Transaction) Analysis {
	analysis := Analysis{
		Explanations:   make(map[string]map[string]int),
		AmountClusters: make(map[ClusterKey][]float64),
		ClusterStats:   make(map[ClusterKey]AmountStats),
		Series:         make(map[string][]model.SeriesPoint),
		Profiles:       make(map[string]model.PatternProfile),
	}

	for _, txn := range transactions {
		desc := textmatch.Normalize(txn.Description)
		amount := txn.Float()

		if txn.Explanation != "" {
			counts, ok := analysis.Explanations[desc]
			if !ok {
				counts = make(map[string]int)
				analysis.Explanations[desc] = counts
			}
			counts[txn.Explanation]++
		}

		if amount != 0 && txn.AccountRef != "" {
			key := ClusterKey{Description: desc, Account: txn.AccountRef}
			analysis.AmountClusters[key] = append(analysis.AmountClusters[key], amount)
		}

		if !txn.Date.IsZero() && amount != 0 {
			analysis.Series[desc] = append(analysis.Series[desc], model.SeriesPoint{
				Date:    txn.Date,
				Amount:  amount,
				Account: txn.AccountRef,
			})
		}
	}

	for key, amounts := range analysis.AmountClusters {
		if len(amounts) < 2 {
			continue
		}
		lo, hi := stats.MinMax(amounts)
		analysis.ClusterStats[key] = AmountStats{
			Count:    len(amounts),
			Mean:     stats.Mean(amounts),
			Variance: stats.PopulationVariance(amounts),
			Min:      lo,
			Max:      hi,
		}
	}

	for desc, series := range analysis.Series {
		if len(series) < 2 {
			continue
		}
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})
		analysis.Profiles[desc] = buildProfile(desc, series)
	}

	return analysis
}

func buildProfile(desc string, series []model.SeriesPoint) model.PatternProfile {
	amounts := make([]float64, len(series))
	dates := make([]time.Time, len(series))
	for i, p := range series {
		amounts[i] = p.Amount
		dates[i] = p.Date
	}

	metrics := CalculateAdvancedMetrics(amounts, dates)
	profile := model.PatternProfile{
		Description: desc,
		FirstDate:   dates[0],
		LastDate:    dates[len(dates)-1],
		Mean:        stats.Mean(amounts),
		Variance:    stats.PopulationVariance(amounts),
		Frequency:   len(series),
		Recurrence:  AnalyzeRecurringPatterns(series),
		Stability:   AnalyzeTemporalStability(amounts),
		Metrics:     metrics,
		Confidence:  metrics.Reliability,
	}
	if len(amounts) >= seasonalityMin {
		profile.HasSeasonality = true
		profile.Seasonality = metrics.Seasonality
	}
	return profile
}
