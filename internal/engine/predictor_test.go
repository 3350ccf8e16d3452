package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/llm"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/rules"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseDate = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

var testAccounts = model.Accounts{
	{Code: "5000", Name: "Rent Expense", Category: "Expenses"},
	{Code: "5100", Name: "Office Expenses", Category: "Expenses"},
	{Code: "5200", Name: "Meals Expense", Category: "Expenses"},
	{Code: "5300", Name: "Office Supplies", Category: "Expenses"},
	{Code: "5400", Name: "Salaries Expense", Category: "Expenses"},
}

// engineRules adapts an in-memory rules.Engine to RuleSource.
type engineRules struct {
	engine *rules.Engine
}

func (r engineRules) Classify(_ context.Context, description string) (model.Candidates, error) {
	return r.engine.Classify(description), nil
}

type failingRules struct {
	err error
}

func (r failingRules) Classify(context.Context, string) (model.Candidates, error) {
	return nil, r.err
}

func defaultRules(t *testing.T) RuleSource {
	t.Helper()
	e := rules.NewEngine(nil)
	require.Positive(t, e.Load(rules.DefaultRules()))
	return engineRules{engine: e}
}

func keywordRules(t *testing.T, category string, keywords ...string) RuleSource {
	t.Helper()
	e := rules.NewEngine(nil)
	for _, kw := range keywords {
		require.NoError(t, e.AddKeyword(kw, category))
	}
	return engineRules{engine: e}
}

func monthlyRent(n int) []model.Transaction {
	out := make([]model.Transaction, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Transaction{
			ID:          fmt.Sprintf("rent-%d", i),
			Date:        baseDate.AddDate(0, i, 0),
			Description: "Office Rent Payment",
			Amount:      decimal.NewFromInt(-1500),
			AccountRef:  "Rent Expense",
			Explanation: "Monthly office rent",
		})
	}
	return out
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(&lockedWriter{w: buf}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func targets(c model.Candidates) []string {
	out := make([]string, 0, len(c))
	for _, candidate := range c {
		out = append(out, candidate.Target)
	}
	return out
}

func TestGetSuggestions_OfficeRentEndToEnd(t *testing.T) {
	advisor := NewMockAdvisor(llm.Suggestion{Account: "Meals Expense", Confidence: 0.9})
	p := NewHybridPredictor(config.DefaultEngine(), defaultRules(t), advisor, nil)

	got := p.GetSuggestions(context.Background(), Request{
		Description: "Office Rent Payment",
		Amount:      decimal.NewFromInt(-1500),
		History:     monthlyRent(5),
		Accounts:    testAccounts,
	})

	require.NoError(t, got.Validate())
	assert.Equal(t, []string{"Rent Expense", "Office Expenses"}, targets(got))

	top := got.Top()
	require.NotNil(t, top)
	assert.Equal(t, model.MatchExact, top.Type)
	assert.Equal(t, model.SourcePattern, top.Source)
	assert.GreaterOrEqual(t, top.Confidence, 0.95)

	require.NotNil(t, top.Historical)
	require.NotNil(t, top.Historical.Profile)
	assert.True(t, top.Historical.Profile.Recurrence.IsRecurring)
	assert.Equal(t, model.FrequencyMonthly, top.Historical.Profile.Recurrence.SuggestedFrequency)

	require.NotNil(t, top.Usage)
	assert.Equal(t, "monthly", top.Usage.Frequency)
	assert.Equal(t, 5, top.Usage.TransactionCount)

	assert.Equal(t, model.MatchKeyword, got[1].Type)
	assert.Nil(t, got[1].Usage, "no history booked to Office Expenses")

	assert.Empty(t, advisor.Requests(), "strong local signal must not reach the model")
}

func TestGetSuggestions_Escalation(t *testing.T) {
	tests := []struct {
		rules       RuleSource
		name        string
		description string
		suggestions []llm.Suggestion
		wantTargets []string
		wantTop     model.MatchType
		wantBoost   bool
		wantCalls   int
		wantTopConf float64
	}{
		{
			name:        "no local signal asks the model without boost",
			rules:       defaultRules(t),
			description: "Coffee with client",
			suggestions: []llm.Suggestion{{Account: "Meals Expense", Confidence: 0.8, Reasoning: "client meal"}},
			wantTargets: []string{"Meals Expense"},
			wantTop:     model.MatchAI,
			wantCalls:   1,
			wantTopConf: 0.8,
		},
		{
			name:        "moderate local signal boosts the model",
			rules:       keywordRules(t, "Office Expenses", "office", "supplies"),
			description: "office supplies order",
			suggestions: []llm.Suggestion{{Account: "Office Supplies", Confidence: 0.75}},
			wantTargets: []string{"Office Supplies", "Office Expenses"},
			wantTop:     model.MatchAI,
			wantBoost:   true,
			wantCalls:   1,
			wantTopConf: 0.85,
		},
		{
			name:        "boost is clamped",
			rules:       keywordRules(t, "Office Expenses", "office", "supplies"),
			description: "office supplies order",
			suggestions: []llm.Suggestion{{Account: "Office Supplies", Confidence: 0.95}},
			wantTargets: []string{"Office Supplies", "Office Expenses"},
			wantTop:     model.MatchAI,
			wantBoost:   true,
			wantCalls:   1,
			wantTopConf: 1.0,
		},
		{
			name:        "unreliable keyword below high confidence escalates",
			rules:       keywordRules(t, "Office Expenses", "office", "supplies", "order"),
			description: "office supplies order",
			suggestions: []llm.Suggestion{{Account: "Office Supplies", Confidence: 0.5}},
			wantTargets: []string{"Office Expenses", "Office Supplies"},
			wantTop:     model.MatchKeyword,
			wantBoost:   true,
			wantCalls:   1,
			wantTopConf: 0.8,
		},
		{
			name:        "regex rule at high confidence does not escalate",
			rules:       defaultRules(t),
			description: "ACME PAYROLL 0423",
			suggestions: []llm.Suggestion{{Account: "Meals Expense", Confidence: 0.99}},
			wantTargets: []string{"Salaries Expense"},
			wantTop:     model.MatchCustomRule,
			wantCalls:   0,
			wantTopConf: 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advisor := NewMockAdvisor(tt.suggestions...)
			p := NewHybridPredictor(config.DefaultEngine(), tt.rules, advisor, nil)

			got := p.GetSuggestions(context.Background(), Request{
				Description: tt.description,
				Amount:      decimal.NewFromInt(-42),
				Accounts:    testAccounts,
			})

			require.NoError(t, got.Validate())
			assert.Equal(t, tt.wantTargets, targets(got))
			assert.Len(t, advisor.Requests(), tt.wantCalls)

			top := got.Top()
			require.NotNil(t, top)
			assert.Equal(t, tt.wantTop, top.Type)
			assert.InDelta(t, tt.wantTopConf, top.Confidence, 1e-9)

			for _, c := range got {
				if c.Type != model.MatchAI {
					continue
				}
				assert.Equal(t, model.SourceAI, c.Source)
				require.NotNil(t, c.AI)
				assert.Equal(t, tt.wantBoost, c.AI.Boosted)
			}
		})
	}
}

func TestGetSuggestions_PassesRequestToAdvisor(t *testing.T) {
	advisor := NewMockAdvisor()
	p := NewHybridPredictor(config.DefaultEngine(), nil, advisor, nil)

	p.GetSuggestions(context.Background(), Request{
		Description: "Coffee with client",
		Explanation: "met with ACME",
		Amount:      decimal.RequireFromString("-12.50"),
		Accounts:    testAccounts,
	})

	requests := advisor.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "Coffee with client", requests[0].Description)
	assert.Equal(t, "met with ACME", requests[0].Explanation)
	assert.True(t, decimal.RequireFromString("-12.50").Equal(requests[0].Amount))
	assert.Equal(t, testAccounts, requests[0].Accounts)
}

func TestGetSuggestions_NoAccountsSkipsModel(t *testing.T) {
	advisor := NewMockAdvisor(llm.Suggestion{Account: "Meals Expense", Confidence: 0.9})
	p := NewHybridPredictor(config.DefaultEngine(), defaultRules(t), advisor, nil)

	got := p.GetSuggestions(context.Background(), Request{Description: "Coffee with client"})

	assert.Empty(t, got)
	assert.Empty(t, advisor.Requests())
}

func TestGetSuggestions_LLMFailureFallsBack(t *testing.T) {
	failures := []error{
		fmt.Errorf("llm request failed: %w", context.DeadlineExceeded),
		fmt.Errorf("llm request failed: %w after 3 attempts: %w", common.ErrMaxRetries, common.ErrRateLimit),
		fmt.Errorf("%w: not json", common.ErrMalformedResponse),
		&common.RetryableError{Err: errors.New("401 unauthorized"), Retryable: false},
	}

	req := Request{
		Description: "Office Rent Pymt",
		Amount:      decimal.NewFromInt(-1400),
		History:     monthlyRent(3),
		Accounts:    testAccounts,
	}

	baseline := NewHybridPredictor(config.DefaultEngine(), defaultRules(t), nil, nil).
		GetSuggestions(context.Background(), req)
	require.NotEmpty(t, baseline)

	for _, failure := range failures {
		t.Run(common.ErrorKind(failure), func(t *testing.T) {
			var logs bytes.Buffer
			advisor := NewFailingAdvisor(failure, 3)
			p := NewHybridPredictor(config.DefaultEngine(), defaultRules(t), advisor, bufferLogger(&logs))

			got := p.GetSuggestions(context.Background(), req)

			require.Len(t, advisor.Requests(), 1, "weak local signal should escalate")
			assert.Equal(t, baseline, got)
			for _, c := range got {
				assert.NotEqual(t, model.MatchAI, c.Type)
			}

			assert.Contains(t, logs.String(), "llm fallback failed")
			assert.Contains(t, logs.String(), `"error_type":"`+common.ErrorKind(failure)+`"`)
			assert.Contains(t, logs.String(), `"attempts":3`)
			assert.Contains(t, logs.String(), `"request_id":`)
		})
	}
}

func TestGetSuggestions_RuleFailureKeepsPatterns(t *testing.T) {
	p := NewHybridPredictor(config.DefaultEngine(), failingRules{err: errors.New("database is locked")}, nil, nil)

	got := p.GetSuggestions(context.Background(), Request{
		Description: "Office Rent Payment",
		Amount:      decimal.NewFromInt(-1500),
		History:     monthlyRent(5),
	})

	require.Len(t, got, 1)
	assert.Equal(t, model.MatchExact, got[0].Type)
}

func TestGetSuggestions_EmptyInput(t *testing.T) {
	p := NewHybridPredictor(config.DefaultEngine(), defaultRules(t), nil, nil)

	assert.Empty(t, p.GetSuggestions(context.Background(), Request{}))
	assert.Empty(t, p.GetSuggestions(context.Background(), Request{Description: "   "}))
}

func TestGetSuggestions_CapsAndDedupes(t *testing.T) {
	e := rules.NewEngine(nil)
	for _, category := range []string{"A", "B", "C", "D", "E"} {
		require.NoError(t, e.AddKeyword("widget", category))
	}
	require.NoError(t, e.AddKeyword("widget", "a"))

	cfg := config.DefaultEngine()
	p := NewHybridPredictor(cfg, engineRules{engine: e}, nil, nil)

	got := p.GetSuggestions(context.Background(), Request{Description: "widget"})

	assert.Len(t, got, cfg.MaxSuggestions)
	seen := map[string]bool{}
	for _, c := range got {
		key := c.Target
		if key == "a" {
			key = "A"
		}
		assert.False(t, seen[key], "duplicate target %s", c.Target)
		seen[key] = true
	}
}

func TestGetSuggestions_UsageEnrichmentToggle(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.UsageEnrichment = false
	p := NewHybridPredictor(cfg, nil, nil, nil)

	got := p.GetSuggestions(context.Background(), Request{
		Description: "Office Rent Payment",
		Amount:      decimal.NewFromInt(-1500),
		History:     monthlyRent(5),
		Accounts:    testAccounts,
	})

	require.NotEmpty(t, got)
	assert.Nil(t, got[0].Usage)
}

func TestGetSuggestions_Concurrent(t *testing.T) {
	advisor := NewMockAdvisor(llm.Suggestion{Account: "Meals Expense", Confidence: 0.6})
	p := NewHybridPredictor(config.DefaultEngine(), defaultRules(t), advisor, nil)
	history := monthlyRent(5)

	var wg sync.WaitGroup
	results := make([]model.Candidates, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			desc := "Office Rent Payment"
			if i%2 == 1 {
				desc = "Lunch with team"
			}
			results[i] = p.GetSuggestions(context.Background(), Request{
				Description: desc,
				Amount:      decimal.NewFromInt(-1500),
				History:     history,
				Accounts:    testAccounts,
			})
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		require.NotEmpty(t, got)
		if i%2 == 0 {
			assert.Equal(t, model.MatchExact, got[0].Type)
		} else {
			assert.Equal(t, model.MatchAI, got[0].Type)
		}
	}
	assert.Len(t, advisor.Requests(), 8)
}
