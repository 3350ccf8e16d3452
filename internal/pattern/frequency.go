package pattern

import (
	"math"
	"sort"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/stats"
	"github.com/Veraticus/tally/internal/textmatch"
)

// FrequencyPattern describes a description that recurs in history.
type FrequencyPattern struct {
	Description string
	Accounts    []string
	Count       int
	MinAmount   float64
	MaxAmount   float64
	AvgAmount   float64
	Confidence  float64
}

// AmountPattern describes where an amount falls among similar transactions.
type AmountPattern struct {
	Mean       float64
	StdDev     float64
	ZScore     float64
	Confidence float64
	SampleSize int
}

// AnalyzeFrequency returns a pattern for every normalized description that
// occurs at least twice.
func AnalyzeFrequency(history []model.Transaction) map[string]FrequencyPattern {
	return analyzeFrequency(newIndex(history))
}

func analyzeFrequency(idx *index) map[string]FrequencyPattern {
	amounts := make(map[string][]float64)
	accounts := make(map[string]map[string]struct{})

	for _, e := range idx.entries {
		if e.norm == "" {
			continue
		}
		amounts[e.norm] = append(amounts[e.norm], e.txn.Float())
		if e.txn.AccountRef != "" {
			set, ok := accounts[e.norm]
			if !ok {
				set = make(map[string]struct{})
				accounts[e.norm] = set
			}
			set[e.txn.AccountRef] = struct{}{}
		}
	}

	patterns := make(map[string]FrequencyPattern)
	for desc, values := range amounts {
		if len(values) < 2 {
			continue
		}

		accts := make([]string, 0, len(accounts[desc]))
		for a := range accounts[desc] {
			accts = append(accts, a)
		}
		sort.Strings(accts)

		lo, hi := stats.MinMax(values)
		patterns[desc] = FrequencyPattern{
			Description: desc,
			Accounts:    accts,
			Count:       len(values),
			MinAmount:   lo,
			MaxAmount:   hi,
			AvgAmount:   stats.Mean(values),
			Confidence:  math.Min(float64(len(values))/10, 0.9),
		}
	}
	return patterns
}

// DetectAmountPattern compares amount with the transactions whose description
// is at least fuzzy-similar to description. The confidence falls linearly
// with the z-score and reaches zero at three standard deviations.
func (m *Matcher) DetectAmountPattern(description string, amount float64, history []model.Transaction) AmountPattern {
	return m.detectAmountPattern(textmatch.Normalize(description), amount, newIndex(history))
}

func (m *Matcher) detectAmountPattern(norm string, amount float64, idx *index) AmountPattern {
	if norm == "" {
		return AmountPattern{}
	}

	var similar []float64
	for _, e := range idx.entries {
		if textmatch.Similarity(norm, e.norm) >= m.cfg.FuzzyThreshold {
			similar = append(similar, e.txn.Float())
		}
	}
	if len(similar) == 0 {
		return AmountPattern{}
	}

	result := AmountPattern{
		Mean:       stats.Mean(similar),
		StdDev:     stats.PopulationStdDev(similar),
		SampleSize: len(similar),
	}

	deviation := math.Abs(amount - result.Mean)
	if result.StdDev > 0 {
		result.ZScore = deviation / result.StdDev
		result.Confidence = stats.Clamp01(1 - result.ZScore/3)
		return result
	}

	// Every similar amount is identical: a match is certain, anything else
	// is off the pattern.
	if deviation < amountTolerance {
		result.Confidence = 1
	}
	return result
}

// amountTolerance absorbs float noise from decimal conversion.
const amountTolerance = 1e-9
