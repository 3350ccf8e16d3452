package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// ExplanationSuggestion is a proposed explanation for a transaction.
type ExplanationSuggestion struct {
	Basis      *model.Transaction // history entry the text came from, if local
	Text       string
	Source     model.Source
	Confidence float64
}

// SuggestExplanation reuses the explanation of the closest historical match
// and asks the advisor only when history has none. It returns
// common.ErrInsufficientData when neither source produces one.
func (p *HybridPredictor) SuggestExplanation(ctx context.Context, description string, history []model.Transaction) (ExplanationSuggestion, error) {
	exact := p.matcher.FindExactMatches(description, history)
	if s, ok := explanationFrom(exact); ok {
		return s, nil
	}

	fuzzy := p.matcher.FindFuzzyMatches(description, history)
	if s, ok := explanationFrom(fuzzy); ok {
		return s, nil
	}

	if p.advisor == nil {
		return ExplanationSuggestion{}, fmt.Errorf("%w: no similar explained transactions", common.ErrInsufficientData)
	}

	similar := make([]model.Transaction, 0, len(fuzzy))
	for _, c := range fuzzy {
		similar = append(similar, c.Historical.Transaction)
	}

	result, err := p.advisor.SuggestExplanation(ctx, description, similar)
	if err != nil {
		p.logger.Warn("llm explanation failed",
			"description", description,
			"error", err,
			"error_type", common.ErrorKind(err),
			"attempts", result.Attempts)
		return ExplanationSuggestion{}, fmt.Errorf("%w: explanation unavailable: %w", common.ErrInsufficientData, err)
	}

	return ExplanationSuggestion{
		Text:       result.Text,
		Source:     model.SourceAI,
		Confidence: result.Confidence,
	}, nil
}

// explanationFrom returns the first ranked candidate whose transaction
// carries an explanation.
func explanationFrom(candidates model.Candidates) (ExplanationSuggestion, bool) {
	for _, c := range candidates {
		if c.Historical == nil {
			continue
		}
		txn := c.Historical.Transaction
		if text := strings.TrimSpace(txn.Explanation); text != "" {
			return ExplanationSuggestion{
				Basis:      &txn,
				Text:       text,
				Source:     model.SourcePattern,
				Confidence: c.Confidence,
			}, true
		}
	}
	return ExplanationSuggestion{}, false
}
