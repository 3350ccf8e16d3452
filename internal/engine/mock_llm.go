package engine

import (
	"context"
	"sync"

	"github.com/Veraticus/tally/internal/llm"
	"github.com/Veraticus/tally/internal/model"
)

// MockAdvisor is a scripted Advisor for tests. It records every request.
type MockAdvisor struct {
	Err         error
	Suggestions []llm.Suggestion
	Explanation llm.Explanation
	Attempts    int

	requests     []llm.AccountRequest
	explanations []string
	mu           sync.Mutex
}

// NewMockAdvisor returns an advisor that answers with suggestions.
func NewMockAdvisor(suggestions ...llm.Suggestion) *MockAdvisor {
	return &MockAdvisor{Suggestions: suggestions, Attempts: 1}
}

// NewFailingAdvisor returns an advisor whose every call fails with err
// after the given number of attempts.
func NewFailingAdvisor(err error, attempts int) *MockAdvisor {
	return &MockAdvisor{Err: err, Attempts: attempts}
}

// SuggestAccounts returns the scripted suggestions or error.
func (m *MockAdvisor) SuggestAccounts(ctx context.Context, req llm.AccountRequest) (llm.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if err := ctx.Err(); err != nil {
		return llm.Result{}, err
	}
	if m.Err != nil {
		return llm.Result{Attempts: m.Attempts}, m.Err
	}

	out := make([]llm.Suggestion, len(m.Suggestions))
	copy(out, m.Suggestions)
	return llm.Result{Suggestions: out, Attempts: m.Attempts}, nil
}

// SuggestExplanation returns the scripted explanation or error.
func (m *MockAdvisor) SuggestExplanation(ctx context.Context, description string, _ []model.Transaction) (llm.ExplanationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.explanations = append(m.explanations, description)
	if err := ctx.Err(); err != nil {
		return llm.ExplanationResult{}, err
	}
	if m.Err != nil {
		return llm.ExplanationResult{Attempts: m.Attempts}, m.Err
	}
	return llm.ExplanationResult{Explanation: m.Explanation, Attempts: m.Attempts}, nil
}

// Requests returns the account requests received so far.
func (m *MockAdvisor) Requests() []llm.AccountRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]llm.AccountRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// ExplanationCalls returns how many explanations were requested.
func (m *MockAdvisor) ExplanationCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.explanations)
}
