package pattern

import (
	"testing"

	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestFromPatterns_OfficeRent(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)
	history := monthly("Office Rent Payment", "-1500.00", 5)

	got := m.SuggestFromPatterns("Office Rent Payment", decimal.RequireFromString("-1500.00"), history)

	require.NotEmpty(t, got)
	require.LessOrEqual(t, len(got), DefaultMaxCandidates)
	top := got[0]
	assert.Equal(t, model.MatchExact, top.Type)
	assert.GreaterOrEqual(t, top.Confidence, 0.95)
	assert.True(t, top.HasReliability)
	assert.InDelta(t, 1.0, top.Reliability, 1e-9)
	assert.InDelta(t, 1.0, top.Historical.AmountConfidence, 1e-9)

	require.NotNil(t, top.Historical.Profile)
	assert.True(t, top.Historical.Profile.Recurrence.IsRecurring)
	assert.Equal(t, model.FrequencyMonthly, top.Historical.Profile.Recurrence.SuggestedFrequency)
	assert.True(t, top.Historical.Profile.HasSeasonality)

	analysis := AnalyzePatterns(history)
	profile, ok := analysis.Profiles["office rent payment"]
	require.True(t, ok)
	assert.True(t, profile.Recurrence.IsRecurring)
	assert.Equal(t, model.FrequencyMonthly, profile.Recurrence.SuggestedFrequency)
}

func TestSuggestFromPatterns_FuzzyFallback(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)
	history := []model.Transaction{
		txn("Office Rent Paymnt", "-1500", 0, "Rent Expense"),
		txn("Office Rent Paymnt", "-1500", 30, "Rent Expense"),
		txn("Office Rent Paymnt", "-1450", 60, "Facilities"),
		txn("Coffee", "-4", 61, "Meals"),
	}

	got := m.SuggestFromPatterns("Office Rent Payment", decimal.RequireFromString("-1500"), history)

	require.Len(t, got, 3)
	for _, c := range got {
		assert.Equal(t, model.MatchFuzzy, c.Type)
		assert.True(t, c.HasReliability)
		assert.GreaterOrEqual(t, c.Confidence, 0.0)
		assert.LessOrEqual(t, c.Confidence, 1.0)
		assert.Less(t, c.Reliability, 0.95, "fuzzy reliability stays below the exact floor")
	}
	assert.Equal(t, "Rent Expense", got[0].Target, "shared target earns a larger frequency boost")
	assert.Equal(t, "Facilities", got[2].Target)
}

func TestSuggestFromPatterns_Degenerate(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)
	zero := decimal.Zero

	tests := []struct {
		name        string
		description string
		history     []model.Transaction
		wantEmpty   bool
	}{
		{name: "empty description", description: "", history: monthly("Rent", "-10", 3), wantEmpty: true},
		{name: "empty history", description: "Rent", wantEmpty: true},
		{name: "no similar history", description: "Rent", history: monthly("Groceries", "-10", 3), wantEmpty: true},
		{name: "single element", description: "Rent", history: monthly("Rent", "-10", 1)},
		{name: "all zero amounts", description: "Rent", history: monthly("Rent", "0", 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.SuggestFromPatterns(tt.description, zero, tt.history)
			if tt.wantEmpty {
				assert.Empty(t, got)
				return
			}
			require.NotEmpty(t, got)
			for _, c := range got {
				assert.GreaterOrEqual(t, c.Confidence, 0.0)
				assert.LessOrEqual(t, c.Confidence, 1.0)
				assert.GreaterOrEqual(t, c.Reliability, 0.0)
				assert.LessOrEqual(t, c.Reliability, 1.0)
				assert.NoError(t, c.Validate())
			}
		})
	}
}

func TestAnalyzeFrequency(t *testing.T) {
	var history []model.Transaction
	for i := range 12 {
		history = append(history, txn("Payroll Run", "2500", i*14, "Salaries"))
	}
	history = append(history,
		txn("Cloud Hosting", "-20", 1, "Hosting"),
		txn("Cloud Hosting", "-30", 31, "Software"),
		txn("One Off", "-5", 2, ""),
	)

	got := AnalyzeFrequency(history)

	require.Len(t, got, 2)
	assert.InDelta(t, 0.9, got["payroll run"].Confidence, 1e-9)
	hosting := got["cloud hosting"]
	assert.Equal(t, 2, hosting.Count)
	assert.InDelta(t, 0.2, hosting.Confidence, 1e-9)
	assert.InDelta(t, -25, hosting.AvgAmount, 1e-9)
	assert.InDelta(t, -30, hosting.MinAmount, 1e-9)
	assert.InDelta(t, -20, hosting.MaxAmount, 1e-9)
	assert.Equal(t, []string{"Hosting", "Software"}, hosting.Accounts)
}

func TestDetectAmountPattern(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)
	spread := []model.Transaction{
		txn("Coffee Beans Wholesale", "100", 0, ""),
		txn("Coffee Beans Wholesale", "110", 7, ""),
		txn("Coffee Beans Wholesale", "90", 14, ""),
	}
	flat := monthly("Coffee Beans Wholesale", "100", 3)

	tests := []struct {
		name    string
		history []model.Transaction
		amount  float64
		want    float64
	}{
		{name: "at the mean", history: spread, amount: 100, want: 1},
		{name: "one and a half sigma", history: spread, amount: 112.24744871391589, want: 0.5},
		{name: "beyond three sigma", history: spread, amount: 200, want: 0},
		{name: "flat history same amount", history: flat, amount: 100, want: 1},
		{name: "flat history other amount", history: flat, amount: 101, want: 0},
		{name: "nothing similar", history: monthly("Rent", "100", 3), amount: 100, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.DetectAmountPattern("coffee beans wholesale", tt.amount, tt.history)
			assert.InDelta(t, tt.want, got.Confidence, 1e-6)
		})
	}
}

func TestAnalyzePatterns(t *testing.T) {
	history := []model.Transaction{
		txn("Office Rent Payment", "-1500", 0, "Rent Expense"),
		txn("Office Rent Payment", "-1500", 30, "Rent Expense"),
		txn("Office Rent Payment", "0", 45, "Rent Expense"),
		txn("Coffee", "-4", 1, ""),
	}
	history[0].Explanation = "March rent"
	history[1].Explanation = "March rent"

	got := AnalyzePatterns(history)

	assert.Equal(t, 2, got.ExplanationCount("office rent payment", "March rent"))
	assert.Len(t, got.Series["office rent payment"], 2, "zero amounts are not part of the series")
	assert.Contains(t, got.Profiles, "office rent payment")
	assert.NotContains(t, got.Profiles, "coffee")

	stats := got.ClusterStats[ClusterKey{Description: "office rent payment", Account: "Rent Expense"}]
	assert.Equal(t, 2, stats.Count)
	assert.InDelta(t, -1500, stats.Mean, 1e-9)
	assert.Zero(t, stats.Variance)

	profile := got.Profiles["office rent payment"]
	assert.Equal(t, 2, profile.Frequency)
	assert.Equal(t, baseDate, profile.FirstDate)
	assert.Equal(t, baseDate.AddDate(0, 0, 30), profile.LastDate)
	assert.False(t, profile.HasSeasonality)
	assert.InDelta(t, profile.Metrics.Reliability, profile.Confidence, 0)

	assert.Empty(t, AnalyzePatterns(nil).Profiles)
}

func TestCalculateHistoricalConfidence(t *testing.T) {
	t.Run("monthly constant", func(t *testing.T) {
		var history []model.Transaction
		for i := range 6 {
			history = append(history, txn("Rent", "-1500", i*30, ""))
		}

		got := CalculateHistoricalConfidence(history)

		assert.Equal(t, 6, got.Count)
		assert.Equal(t, 150, got.RangeDays)
		assert.InDelta(t, 1, got.AmountStability, 1e-9)
		assert.InDelta(t, 1, got.FrequencyScore, 1e-9)
		if assert.NotNil(t, got.Intervals) {
			assert.Equal(t, "monthly", got.Intervals.IntervalType)
			assert.InDelta(t, 1, got.Intervals.TypeConfidence, 1e-9)
		}
		if assert.NotNil(t, got.Amounts) {
			assert.InDelta(t, 1, got.Amounts.Consistency, 1e-9)
			assert.InDelta(t, -1500, got.Amounts.CommonAmount, 1e-9)
		}
		assert.InDelta(t, 0.35+0.35+0.6*0.2+0.1, got.Confidence, 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Zero(t, CalculateHistoricalConfidence(nil).Confidence)
	})

	t.Run("weekly closest", func(t *testing.T) {
		history := []model.Transaction{
			txn("Cleaner", "-60", 0, ""),
			txn("Cleaner", "-60", 6, ""),
			txn("Cleaner", "-60", 14, ""),
		}
		got := CalculateHistoricalConfidence(history)
		require.NotNil(t, got.Intervals)
		assert.Equal(t, "weekly", got.Intervals.IntervalType)
	})
}
