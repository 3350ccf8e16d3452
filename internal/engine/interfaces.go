package engine

import (
	"context"

	"github.com/Veraticus/tally/internal/llm"
	"github.com/Veraticus/tally/internal/model"
)

// RuleSource classifies a description against keyword rules.
type RuleSource interface {
	Classify(ctx context.Context, description string) (model.Candidates, error)
}

// Advisor is the language model fallback.
type Advisor interface {
	SuggestAccounts(ctx context.Context, req llm.AccountRequest) (llm.Result, error)
	SuggestExplanation(ctx context.Context, description string, similar []model.Transaction) (llm.ExplanationResult, error)
}
