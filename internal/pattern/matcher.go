// Package pattern finds historical transactions resembling a new one and
// derives statistical confidence from them.
package pattern

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/stats"
	"github.com/Veraticus/tally/internal/textmatch"
)

// Scoring weights for fuzzy matches.
const (
	textWeight           = 0.7
	amountWeight         = 0.3
	neutralAmountScore   = 0.5
	DefaultFuzzyCutoff   = 0.85
	DefaultMaxCandidates = 5
)

// Config tunes the matcher.
type Config struct {
	FuzzyThreshold float64
	MaxCandidates  int
}

// DefaultConfig returns the stock matcher settings.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold: DefaultFuzzyCutoff,
		MaxCandidates:  DefaultMaxCandidates,
	}
}

// Matcher scores history against a description. It holds no mutable state
// and is safe for concurrent use.
type Matcher struct {
	logger *slog.Logger
	cfg    Config
}

// NewMatcher creates a matcher. Zero config fields take their defaults.
func NewMatcher(cfg Config, logger *slog.Logger) *Matcher {
	def := DefaultConfig()
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = def.FuzzyThreshold
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = def.MaxCandidates
	}
	return &Matcher{cfg: cfg, logger: common.LoggerOrDefault(logger)}
}

// Config returns the effective configuration.
func (m *Matcher) Config() Config {
	return m.cfg
}

// entry is a history transaction with its normalized description.
type entry struct {
	txn  model.Transaction
	norm string
}

// index normalizes history once per call.
type index struct {
	entries   []entry
	normCount map[string]int
	byRaw     map[string][]float64 // raw description -> amounts
}

func newIndex(history []model.Transaction) *index {
	idx := &index{
		entries:   make([]entry, 0, len(history)),
		normCount: make(map[string]int),
		byRaw:     make(map[string][]float64),
	}
	for _, txn := range history {
		norm := textmatch.Normalize(txn.Description)
		idx.entries = append(idx.entries, entry{txn: txn, norm: norm})
		idx.normCount[norm]++
		idx.byRaw[txn.Description] = append(idx.byRaw[txn.Description], txn.Float())
	}
	return idx
}

func candidateTarget(txn model.Transaction) string {
	if target := txn.Target(); target != "" {
		return target
	}
	return txn.Description
}

// FindExactMatches returns every historical transaction whose normalized
// description equals the normalized query, with confidence 1.0.
func (m *Matcher) FindExactMatches(description string, history []model.Transaction) model.Candidates {
	return m.findExact(textmatch.Normalize(description), newIndex(history))
}

func (m *Matcher) findExact(norm string, idx *index) model.Candidates {
	if norm == "" {
		return nil
	}

	var matched []entry
	for _, e := range idx.entries {
		if e.norm == norm {
			matched = append(matched, e)
		}
	}

	// most recent first
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].txn.Date.After(matched[j].txn.Date)
	})

	candidates := make(model.Candidates, 0, len(matched))
	for _, e := range matched {
		candidates = append(candidates, model.MatchCandidate{
			Target:     candidateTarget(e.txn),
			Confidence: 1.0,
			Type:       model.MatchExact,
			Source:     model.SourcePattern,
			Historical: &model.HistoricalMatch{
				Transaction:    e.txn,
				Frequency:      len(matched),
				TextSimilarity: 1.0,
			},
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Frequency() > candidates[j].Frequency()
	})
	return candidates
}

// FindFuzzyMatches returns up to MaxCandidates historical transactions whose
// description similarity reaches the fuzzy threshold, ordered by a blend of
// text and amount similarity.
func (m *Matcher) FindFuzzyMatches(description string, history []model.Transaction) model.Candidates {
	return m.findFuzzy(textmatch.Normalize(description), newIndex(history))
}

func (m *Matcher) findFuzzy(norm string, idx *index) model.Candidates {
	if norm == "" {
		return nil
	}

	var candidates model.Candidates
	for _, e := range idx.entries {
		similarity := textmatch.Similarity(norm, e.norm)
		if similarity < m.cfg.FuzzyThreshold {
			continue
		}

		amountSim := amountSimilarity(e.txn.Float(), idx.byRaw[e.txn.Description])
		combined := stats.Clamp01(textWeight*similarity + amountWeight*amountSim)

		candidates = append(candidates, model.MatchCandidate{
			Target:     candidateTarget(e.txn),
			Confidence: stats.Clamp01(similarity),
			Type:       model.MatchFuzzy,
			Source:     model.SourcePattern,
			Historical: &model.HistoricalMatch{
				Transaction:      e.txn,
				Frequency:        idx.normCount[e.norm],
				TextSimilarity:   similarity,
				AmountSimilarity: amountSim,
				CombinedScore:    combined,
			},
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].Historical, candidates[j].Historical
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		return a.TextSimilarity > b.TextSimilarity
	})

	if len(candidates) > m.cfg.MaxCandidates {
		candidates = candidates[:m.cfg.MaxCandidates]
	}
	return candidates
}

// amountSimilarity compares amount with the mean of its reference amounts.
// It is neutral when there is nothing meaningful to compare against.
func amountSimilarity(amount float64, reference []float64) float64 {
	if len(reference) == 0 || amount == 0 {
		return neutralAmountScore
	}
	avg := stats.Mean(reference)
	if avg == 0 {
		return neutralAmountScore
	}
	deviation := math.Abs(amount-avg) / math.Max(math.Abs(avg), math.Abs(amount))
	return 1 - math.Min(deviation, 1)
}

// sameTarget reports whether two targets name the same thing.
func sameTarget(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
