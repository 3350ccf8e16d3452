package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

const (
	// MaxSuggestions caps how many accounts the model may return.
	MaxSuggestions = 3
	// MinDescriptionLength is the shortest description worth sending.
	MinDescriptionLength = 3
	// maxSimilarContext bounds the examples included in explanation prompts.
	maxSimilarContext = 3
)

// Validation errors for advisor requests.
var (
	ErrDescriptionTooShort = errors.New("description must be at least 3 characters")
	ErrNoAccounts          = errors.New("at least one account is required")
)

// AccountRequest asks for account suggestions for one transaction.
type AccountRequest struct {
	Description string
	Explanation string
	Amount      decimal.Decimal
	Accounts    model.Accounts
}

// Validate checks the request before any call is made.
func (r AccountRequest) Validate() error {
	if len([]rune(strings.TrimSpace(r.Description))) < MinDescriptionLength {
		return ErrDescriptionTooShort
	}
	if len(r.Accounts) == 0 {
		return ErrNoAccounts
	}
	for _, acct := range r.Accounts {
		if err := acct.Validate(); err != nil {
			return fmt.Errorf("account %q: %w", acct.Code, err)
		}
	}
	return nil
}

// Result carries the suggestions and how many provider calls were made.
// Attempts is set on failure too.
type Result struct {
	Suggestions []Suggestion
	Attempts    int
}

// ExplanationResult carries a generated explanation.
type ExplanationResult struct {
	Explanation
	Attempts int
}

// Advisor wraps a Client with rate limiting, retries, an overall timeout,
// prompt rendering and response parsing.
type Advisor struct {
	client  Client
	limiter *rateLimiter
	logger  *slog.Logger
	prompts *promptBuilder
	retry   common.RetryPolicy
	timeout time.Duration
}

// New builds an Advisor for the configured provider.
func New(cfg config.LLM, logger *slog.Logger) (*Advisor, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewAdvisor(client, cfg, logger)
}

// NewAdvisor builds an Advisor around an existing client. Only the
// resilience settings of cfg are used.
func NewAdvisor(client Client, cfg config.LLM, logger *slog.Logger) (*Advisor, error) {
	prompts, err := newPromptBuilder()
	if err != nil {
		return nil, err
	}

	logger = common.LoggerOrDefault(logger)
	retry := cfg.Retry
	if retry.Logger == nil {
		retry.Logger = logger
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Advisor{
		client:  client,
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  logger,
		prompts: prompts,
		retry:   retry,
		timeout: timeout,
	}, nil
}

// SuggestAccounts asks the model for up to MaxSuggestions accounts.
// Suggestions naming accounts outside req.Accounts are dropped and the
// rest are rewritten to the canonical account name.
func (a *Advisor) SuggestAccounts(ctx context.Context, req AccountRequest) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	prompt, err := a.prompts.render(accountTemplate, accountPromptData{
		Description:    strings.TrimSpace(req.Description),
		Explanation:    strings.TrimSpace(req.Explanation),
		Amount:         req.Amount,
		Accounts:       req.Accounts,
		MaxSuggestions: MaxSuggestions,
	})
	if err != nil {
		return Result{}, err
	}

	content, attempts, err := a.complete(ctx, accountSystemPrompt, prompt)
	if err != nil {
		return Result{Attempts: attempts}, err
	}

	parsed, err := parseSuggestions(content)
	if err != nil {
		return Result{Attempts: attempts}, err
	}

	suggestions := make([]Suggestion, 0, MaxSuggestions)
	for _, s := range parsed {
		acct, ok := req.Accounts.Find(s.Account)
		if !ok {
			a.logger.Debug("dropping suggestion for unknown account", "account", s.Account)
			continue
		}
		s.Account = acct.Name
		suggestions = append(suggestions, s)
		if len(suggestions) == MaxSuggestions {
			break
		}
	}

	a.logger.Debug("llm account suggestions",
		"description", req.Description,
		"returned", len(parsed),
		"kept", len(suggestions),
		"attempts", attempts)

	return Result{Suggestions: suggestions, Attempts: attempts}, nil
}

// SuggestExplanation asks the model to explain a transaction, using up to
// three similar transactions as context.
func (a *Advisor) SuggestExplanation(ctx context.Context, description string, similar []model.Transaction) (ExplanationResult, error) {
	if len([]rune(strings.TrimSpace(description))) < MinDescriptionLength {
		return ExplanationResult{}, ErrDescriptionTooShort
	}
	if len(similar) > maxSimilarContext {
		similar = similar[:maxSimilarContext]
	}

	prompt, err := a.prompts.render(explanationTemplate, explanationPromptData{
		Description: strings.TrimSpace(description),
		Similar:     similar,
	})
	if err != nil {
		return ExplanationResult{}, err
	}

	content, attempts, err := a.complete(ctx, explanationSystemPrompt, prompt)
	if err != nil {
		return ExplanationResult{Attempts: attempts}, err
	}

	explanation, err := parseExplanation(content)
	if err != nil {
		return ExplanationResult{Attempts: attempts}, err
	}
	return ExplanationResult{Explanation: explanation, Attempts: attempts}, nil
}

// complete runs one request under the overall timeout, retrying what the
// retry policy allows. Every attempt takes a rate limiter token.
func (a *Advisor) complete(ctx context.Context, systemPrompt, prompt string) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var content string
	attempts, err := a.retry.Do(ctx, func(ctx context.Context) error {
		if err := a.limiter.wait(ctx); err != nil {
			return err
		}
		out, err := a.client.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			return err
		}
		content = out
		return nil
	})
	if err != nil {
		return "", attempts, fmt.Errorf("llm request failed: %w", err)
	}
	return content, attempts, nil
}
