package model

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// MatchType identifies how a candidate was produced.
type MatchType string

// Match types.
const (
	MatchExact      MatchType = "exact"
	MatchFuzzy      MatchType = "fuzzy"
	MatchKeyword    MatchType = "keyword"
	MatchCustomRule MatchType = "custom_rule"
	MatchAI         MatchType = "ai"
)

// Valid reports whether m is one of the known match types.
func (m MatchType) Valid() bool {
	switch m {
	case MatchExact, MatchFuzzy, MatchKeyword, MatchCustomRule, MatchAI:
		return true
	}
	return false
}

// Source identifies the component that produced a candidate.
type Source string

// Candidate sources.
const (
	SourcePattern Source = "pattern"
	SourceKeyword Source = "keyword"
	SourceAI      Source = "ai"
)

// HistoricalMatch details an exact or fuzzy match against history.
type HistoricalMatch struct {
	Transaction      Transaction
	Profile          *PatternProfile
	Frequency        int
	TextSimilarity   float64
	AmountSimilarity float64
	CombinedScore    float64
	AmountConfidence float64
}

// RuleMatch details a keyword or custom regex rule hit.
type RuleMatch struct {
	Pattern  string
	Keywords []string
	RuleID   int
	Priority int
}

// AIMatch details a suggestion returned by the language model.
type AIMatch struct {
	Reasoning     string
	RawConfidence float64
	Boosted       bool
}

// UsageSummary is the account usage profile attached during enrichment.
type UsageSummary struct {
	Frequency        string
	TransactionCount int
	Confidence       float64
}

// MatchCandidate is one ranked suggestion. Exactly one of Historical, Rule
// or AI is set, according to Type.
type MatchCandidate struct {
	Historical  *HistoricalMatch
	Rule        *RuleMatch
	AI          *AIMatch
	Usage       *UsageSummary
	Target      string
	Type        MatchType
	Source      Source
	Confidence  float64
	Reliability float64
	// HasReliability distinguishes a zero reliability from none computed.
	HasReliability bool
}

// Frequency returns the historical frequency, or zero.
func (c MatchCandidate) Frequency() int {
	if c.Historical == nil {
		return 0
	}
	return c.Historical.Frequency
}

// Validate ensures the candidate is internally consistent.
func (c MatchCandidate) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("candidate target is required")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("unknown match type %q", c.Type)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %.2f", c.Confidence)
	}

	switch c.Type {
	case MatchExact, MatchFuzzy:
		if c.Historical == nil {
			return fmt.Errorf("%s candidate missing historical detail", c.Type)
		}
	case MatchKeyword, MatchCustomRule:
		if c.Rule == nil {
			return fmt.Errorf("%s candidate missing rule detail", c.Type)
		}
	case MatchAI:
		if c.AI == nil {
			return fmt.Errorf("ai candidate missing ai detail")
		}
	}
	return nil
}

// Candidates is a slice of MatchCandidate that supports ranking.
type Candidates []MatchCandidate

// Len implements sort.Interface.
func (c Candidates) Len() int {
	return len(c)
}

// Less implements sort.Interface - higher confidence first, then reliability,
// then frequency, then account usage confidence, then target.
func (c Candidates) Less(i, j int) bool {
	if c[i].Confidence != c[j].Confidence {
		return c[i].Confidence > c[j].Confidence
	}
	if c[i].Reliability != c[j].Reliability {
		return c[i].Reliability > c[j].Reliability
	}
	if fi, fj := c[i].Frequency(), c[j].Frequency(); fi != fj {
		return fi > fj
	}
	if ui, uj := c[i].usageConfidence(), c[j].usageConfidence(); ui != uj {
		return ui > uj
	}
	return c[i].Target < c[j].Target
}

// Swap implements sort.Interface.
func (c Candidates) Swap(i, j int) {
	c[i], c[j] = c[j], c[i]
}

// Sort ranks the candidates in place. Equal candidates keep their order.
func (c Candidates) Sort() {
	sort.Stable(c)
}

// Top returns the highest ranked candidate, or nil if empty.
func (c Candidates) Top() *MatchCandidate {
	if len(c) == 0 {
		return nil
	}
	c.Sort()
	return &c[0]
}

// TopN returns the N highest ranked candidates.
func (c Candidates) TopN(n int) Candidates {
	if n <= 0 {
		return Candidates{}
	}

	c.Sort()

	if n > len(c) {
		n = len(c)
	}

	result := make(Candidates, n)
	copy(result, c[:n])
	return result
}

// AboveThreshold returns all candidates at or above threshold, ranked.
func (c Candidates) AboveThreshold(threshold float64) Candidates {
	c.Sort()

	var result Candidates
	for _, candidate := range c {
		if candidate.Confidence >= threshold {
			result = append(result, candidate)
		}
	}
	return result
}

// Dedupe keeps the strongest candidate per target, compared without case,
// and returns them ranked.
func (c Candidates) Dedupe() Candidates {
	ranked := make(Candidates, len(c))
	copy(ranked, c)
	ranked.Sort()

	seen := make(map[string]bool, len(ranked))
	result := make(Candidates, 0, len(ranked))
	for _, candidate := range ranked {
		key := strings.ToLower(strings.TrimSpace(candidate.Target))
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, candidate)
	}
	return result
}

// MaxConfidence returns the highest confidence, or zero if empty.
func (c Candidates) MaxConfidence() float64 {
	best := 0.0
	for _, candidate := range c {
		best = max(best, candidate.Confidence)
	}
	return best
}

// MaxReliability returns the highest reliability among candidates carrying
// one, or zero.
func (c Candidates) MaxReliability() float64 {
	best := 0.0
	for _, candidate := range c {
		if candidate.HasReliability {
			best = max(best, candidate.Reliability)
		}
	}
	return best
}

func (c MatchCandidate) usageConfidence() float64 {
	if c.Usage == nil {
		return 0
	}
	return c.Usage.Confidence
}

// Validate ensures all candidates in the slice are valid.
func (c Candidates) Validate() error {
	for i, candidate := range c {
		if err := candidate.Validate(); err != nil {
			return fmt.Errorf("invalid candidate at index %d: %w", i, err)
		}
	}
	return nil
}

// Clamp01 bounds a score to [0,1]. NaN maps to zero.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
