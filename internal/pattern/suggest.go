package pattern

import (
	"math"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/stats"
	"github.com/Veraticus/tally/internal/textmatch"
	"github.com/shopspring/decimal"
)

// Weights of the final suggestion confidence.
const (
	baseWeight        = 0.4
	frequencyWeight   = 0.3
	amountScoreWeight = 0.2
	reliabilityWeight = 0.1

	// maxFrequencyBoost caps the raw boost; the blend uses boost/maxFrequencyBoost.
	maxFrequencyBoost = 0.15
)

// SuggestFromPatterns ranks the explanations and accounts used by similar
// historical transactions. Exact matches are preferred; fuzzy matches are
// used only when there are none. Empty input yields no candidates.
func (m *Matcher) SuggestFromPatterns(description string, amount decimal.Decimal, history []model.Transaction) model.Candidates {
	norm := textmatch.Normalize(description)
	if norm == "" || len(history) == 0 {
		return nil
	}

	idx := newIndex(history)
	value := amount.InexactFloat64()

	freqConfidence := 0.0
	if fp, ok := analyzeFrequency(idx)[norm]; ok {
		freqConfidence = fp.Confidence
	}
	amountConfidence := m.detectAmountPattern(norm, value, idx).Confidence

	candidates := m.findExact(norm, idx)
	exact := len(candidates) > 0
	if !exact {
		candidates = m.findFuzzy(norm, idx)
	}
	if len(candidates) == 0 {
		return nil
	}

	matched := make([]model.Transaction, 0, len(candidates))
	for _, c := range candidates {
		matched = append(matched, c.Historical.Transaction)
	}
	analysis := AnalyzePatterns(matched)

	for i := range candidates {
		c := &candidates[i]

		var base, reliability float64
		if exact {
			base = 1.0
			reliability = 0.95 + math.Min(0.1, freqConfidence*0.2)
		} else {
			base = c.Historical.TextSimilarity
			frequencyFactor := freqConfidence * 0.3
			amountFactor := amountConfidence * 0.3
			reliability = base*0.6 + frequencyFactor*0.25 + amountFactor*0.15
		}

		shared := 0
		for _, txn := range matched {
			if sameTarget(candidateTarget(txn), c.Target) {
				shared++
			}
		}
		boost := math.Min(maxFrequencyBoost, float64(shared)/10)

		c.Reliability = stats.Clamp01(reliability)
		c.HasReliability = true
		c.Historical.AmountConfidence = amountConfidence
		c.Confidence = stats.Clamp01(base*baseWeight +
			(boost/maxFrequencyBoost)*frequencyWeight +
			amountConfidence*amountScoreWeight +
			c.Reliability*reliabilityWeight)

		if profile, ok := analysis.Profiles[textmatch.Normalize(c.Historical.Transaction.Description)]; ok {
			c.Historical.Profile = &profile
		}
	}

	top := candidates.TopN(m.cfg.MaxCandidates)
	m.logger.Debug("pattern suggestions",
		"description", norm,
		"exact", exact,
		"matches", len(candidates),
		"returned", len(top))
	return top
}
