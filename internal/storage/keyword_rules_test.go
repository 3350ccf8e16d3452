package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordRules_CRUD(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	rent := &model.KeywordRule{Pattern: "rent", Category: "Rent Expense", Priority: 90, IsActive: true}
	payroll := &model.KeywordRule{Pattern: `\bpayroll\b`, Category: "Salaries Expense", Priority: 95, IsRegex: true, IsActive: true}
	office := &model.KeywordRule{Pattern: "office", Category: "Office Expenses", Priority: 50, IsActive: true}

	for _, r := range []*model.KeywordRule{rent, payroll, office} {
		require.NoError(t, store.CreateKeywordRule(ctx, r))
		assert.Positive(t, r.ID)
		assert.False(t, r.CreatedAt.IsZero())
	}

	active, err := store.GetActiveKeywordRules(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, []string{`\bpayroll\b`, "rent", "office"}, patterns(active), "highest priority first")
	assert.True(t, active[0].IsRegex)

	require.NoError(t, store.DeactivateKeywordRule(ctx, office.ID))
	require.NoError(t, store.UpdateKeywordRulePriority(ctx, rent.ID, 99))

	active, err = store.GetActiveKeywordRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rent", `\bpayroll\b`}, patterns(active))

	all, err := store.ListKeywordRules(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := store.GetKeywordRule(ctx, office.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "Office Expenses", got.Category)
}

func TestKeywordRules_Errors(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	rule := &model.KeywordRule{Pattern: "rent", Category: "Rent Expense", Priority: 90, IsActive: true}
	require.NoError(t, store.CreateKeywordRule(ctx, rule))

	tests := []struct {
		run     func() error
		wantErr error
		name    string
	}{
		{
			name:    "duplicate rule",
			run:     func() error { return store.CreateKeywordRule(ctx, &model.KeywordRule{Pattern: "rent", Category: "Rent Expense", Priority: 10}) },
			wantErr: common.ErrDuplicateEntry,
		},
		{
			name:    "missing pattern",
			run:     func() error { return store.CreateKeywordRule(ctx, &model.KeywordRule{Category: "Rent Expense", Priority: 10}) },
			wantErr: ErrInvalidRule,
		},
		{
			name:    "priority out of range",
			run:     func() error { return store.CreateKeywordRule(ctx, &model.KeywordRule{Pattern: "x", Category: "X", Priority: 101}) },
			wantErr: ErrInvalidRule,
		},
		{
			name:    "nil rule",
			run:     func() error { return store.CreateKeywordRule(ctx, nil) },
			wantErr: ErrNilParameter,
		},
		{
			name:    "deactivate unknown",
			run:     func() error { return store.DeactivateKeywordRule(ctx, 999) },
			wantErr: common.ErrNotFound,
		},
		{
			name:    "reprioritize unknown",
			run:     func() error { return store.UpdateKeywordRulePriority(ctx, 999, 10) },
			wantErr: common.ErrNotFound,
		},
		{
			name:    "reprioritize out of range",
			run:     func() error { return store.UpdateKeywordRulePriority(ctx, rule.ID, 0) },
			wantErr: ErrInvalidRule,
		},
		{
			name: "get unknown",
			run: func() error {
				_, err := store.GetKeywordRule(ctx, 999)
				return err
			},
			wantErr: common.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.wantErr)
		})
	}
}

func TestKeywordRules_BackRuleService(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	svc := rules.NewService(store, time.Hour, nil)

	seeded, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(rules.DefaultRules()), seeded)

	again, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, again, "seeding a populated store is a no-op")

	candidates, err := svc.Classify(ctx, "Downtown office rent")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.ElementsMatch(t, []string{"Rent Expense", "Office Expenses"}, []string{candidates[0].Target, candidates[1].Target})

	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	for _, r := range all {
		if r.Category == "Office Expenses" {
			require.NoError(t, svc.Deactivate(ctx, r.ID))
		}
	}

	candidates, err = svc.Classify(ctx, "Downtown office rent")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Rent Expense", candidates[0].Target)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, seeded, stats.Total)
	assert.Equal(t, seeded-1, stats.Active)
	assert.Equal(t, 4, stats.Regex)
	assert.Equal(t, seeded-1-4, stats.Keyword)
}

func patterns(rs []model.KeywordRule) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Pattern)
	}
	return out
}
