package usage

import (
	"testing"
	"time"

	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseDate = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func txn(account string, amount float64, date time.Time) model.Transaction {
	return model.Transaction{
		ID:          date.Format(time.DateOnly) + account,
		Date:        date,
		Description: "usage test",
		Amount:      decimal.NewFromFloat(amount),
		AccountRef:  account,
	}
}

func monthlyRent(n int) []model.Transaction {
	out := make([]model.Transaction, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, txn("5000", -1500, baseDate.AddDate(0, i, 0)))
	}
	return out
}

func TestAnalyzeAccountUsage_MonthlyRent(t *testing.T) {
	report := NewAnalyzer(nil).AnalyzeAccountUsage("5000", monthlyRent(5), nil, nil)

	require.Equal(t, StatusOK, report.Status)
	assert.Equal(t, 5, report.TransactionCount)
	assert.Equal(t, baseDate, report.DateRange.Start)
	assert.Equal(t, baseDate.AddDate(0, 4, 0), report.DateRange.End)
	assert.Equal(t, 121, report.DateRange.Days)

	assert.InDelta(t, -1500, report.Basic.Mean, 1e-9)
	assert.InDelta(t, -1500, report.Basic.Median, 1e-9)
	assert.Zero(t, report.Basic.StdDev)
	assert.InDelta(t, -7500, report.Basic.TotalVolume, 1e-9)
	assert.Equal(t, 1, report.Basic.UniqueAmounts)

	assert.True(t, report.Temporal.PatternDetected)
	assert.True(t, report.Temporal.Interval.Detected)
	assert.InDelta(t, 1.0, report.Temporal.Interval.PatternStrength, 1e-9)
	assert.InDelta(t, 30.25, report.Temporal.Interval.CommonInterval, 0.051)
	assert.Equal(t, 1, report.Temporal.Interval.Variations)
	assert.InDelta(t, 0.97, report.Temporal.Regularity, 1e-9)
	assert.Equal(t, 15, report.Temporal.Monthly.Value)
	assert.Equal(t, "15th", report.Temporal.Monthly.Label)
	assert.InDelta(t, 1.0, report.Temporal.Monthly.PatternStrength, 1e-9)

	assert.True(t, report.Amounts.PatternDetected)
	assert.InDelta(t, -1500, report.Amounts.CommonAmount, 1e-9)
	assert.InDelta(t, 1.0, report.Amounts.StabilityScore, 1e-9)

	assert.Equal(t, FrequencyMonthly, report.Frequency.Type)
	assert.InDelta(t, 0.041, report.Frequency.TransactionsPerDay, 1e-9)
	assert.Equal(t, 5, report.Frequency.ActivityDays)
	assert.Equal(t, 121, report.Frequency.TotalDays)

	// mean(amount strength 1, regularity 0.97, tpd*5 0.205)
	assert.InDelta(t, 0.73, report.Confidence, 0.011)
}

func TestAnalyzeAccountUsage_Filtering(t *testing.T) {
	txns := monthlyRent(6)
	txns = append(txns,
		txn("6000", -40, baseDate),
		txn("6000", -42, baseDate.AddDate(0, 0, 7)),
	)

	tests := []struct {
		start     *time.Time
		end       *time.Time
		name      string
		account   string
		wantCount int
		want      Status
	}{
		{name: "account only", account: "5000", wantCount: 6, want: StatusOK},
		{name: "all accounts", account: "", wantCount: 8, want: StatusOK},
		{name: "sparse account", account: "6000", wantCount: 2, want: StatusInsufficientData},
		{name: "unknown account", account: "9999", wantCount: 0, want: StatusInsufficientData},
		{
			name:      "start bound inclusive",
			account:   "5000",
			start:     ptr(baseDate.AddDate(0, 3, 0)),
			wantCount: 3,
			want:      StatusOK,
		},
		{
			name:      "end bound inclusive",
			account:   "5000",
			end:       ptr(baseDate.AddDate(0, 1, 0)),
			wantCount: 2,
			want:      StatusInsufficientData,
		},
	}

	analyzer := NewAnalyzer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := analyzer.AnalyzeAccountUsage(tt.account, txns, tt.start, tt.end)
			assert.Equal(t, tt.want, report.Status)
			assert.Equal(t, tt.wantCount, report.TransactionCount)
		})
	}
}

func TestAnalyzeAccountUsage_InsufficientDataIsEmpty(t *testing.T) {
	report := NewAnalyzer(nil).AnalyzeAccountUsage("5000", monthlyRent(2), nil, nil)

	assert.Equal(t, StatusInsufficientData, report.Status)
	assert.Equal(t, 2, report.TransactionCount)
	assert.Zero(t, report.Confidence)
	assert.False(t, report.Temporal.PatternDetected)
	assert.Empty(t, report.Frequency.Type)
}

func TestAnalyzeAccountUsage_FrequencyBuckets(t *testing.T) {
	daily := make([]model.Transaction, 0, 10)
	for i := 0; i < 10; i++ {
		daily = append(daily, txn("6100", float64(10*(i+1)), baseDate.AddDate(0, 0, i)))
	}

	weekly := make([]model.Transaction, 0, 5)
	for i := 0; i < 5; i++ {
		weekly = append(weekly, txn("6100", -25, baseDate.AddDate(0, 0, 7*i)))
	}

	irregular := []model.Transaction{
		txn("6100", -10, baseDate),
		txn("6100", -20, baseDate.AddDate(0, 0, 200)),
		txn("6100", -30, baseDate.AddDate(0, 0, 400)),
	}

	sameDay := []model.Transaction{
		txn("6100", -5, baseDate),
		txn("6100", -5, baseDate.Add(2*time.Hour)),
		txn("6100", -5, baseDate.Add(5*time.Hour)),
	}

	tests := []struct {
		name string
		txns []model.Transaction
		want Frequency
	}{
		{name: "daily", txns: daily, want: FrequencyDaily},
		{name: "weekly", txns: weekly, want: FrequencyWeekly},
		{name: "monthly", txns: monthlyRent(4), want: FrequencyMonthly},
		{name: "irregular", txns: irregular, want: FrequencyIrregular},
		{name: "single day", txns: sameDay, want: FrequencySingleDay},
	}

	analyzer := NewAnalyzer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := analyzer.AnalyzeAccountUsage("6100", tt.txns, nil, nil)
			require.Equal(t, StatusOK, report.Status)
			assert.Equal(t, tt.want, report.Frequency.Type)
			assert.GreaterOrEqual(t, report.Confidence, 0.0)
			assert.LessOrEqual(t, report.Confidence, 1.0)
		})
	}
}

func TestAnalyzeAccountUsage_DailyConfidence(t *testing.T) {
	txns := make([]model.Transaction, 0, 10)
	for i := 0; i < 10; i++ {
		txns = append(txns, txn("6100", float64(10*(i+1)), baseDate.AddDate(0, 0, i)))
	}

	report := NewAnalyzer(nil).AnalyzeAccountUsage("6100", txns, nil, nil)

	// Ten distinct amounts give a 0.1 peak, which is not significant.
	assert.False(t, report.Amounts.PatternDetected)
	assert.Equal(t, 10, report.Amounts.Variations)
	assert.InDelta(t, 1.111, report.Frequency.TransactionsPerDay, 1e-9)
	assert.InDelta(t, 1.0, report.Temporal.Regularity, 1e-9)
	assert.InDelta(t, 1.0, report.Confidence, 1e-9)
}

func TestAnalyzeAccountUsage_SameDay(t *testing.T) {
	txns := []model.Transaction{
		txn("6100", -5, baseDate),
		txn("6100", -5, baseDate.Add(2*time.Hour)),
		txn("6100", -5, baseDate.Add(5*time.Hour)),
	}

	report := NewAnalyzer(nil).AnalyzeAccountUsage("6100", txns, nil, nil)

	assert.False(t, report.Temporal.Interval.Detected)
	assert.Zero(t, report.Temporal.Regularity)
	assert.True(t, report.Temporal.Daily.Detected)
	assert.Equal(t, "00:00", report.Temporal.Daily.Label)
	assert.Equal(t, 0, report.Frequency.TotalDays)
	// mean(amount strength 1, regularity 0)
	assert.InDelta(t, 0.5, report.Confidence, 1e-9)
}

func TestAnalyzeAccountUsage_ZeroMeanAmounts(t *testing.T) {
	txns := []model.Transaction{
		txn("1000", 10, baseDate),
		txn("1000", -10, baseDate.AddDate(0, 0, 30)),
		txn("1000", 0, baseDate.AddDate(0, 0, 60)),
	}

	report := NewAnalyzer(nil).AnalyzeAccountUsage("1000", txns, nil, nil)

	require.Equal(t, StatusOK, report.Status)
	assert.False(t, report.Amounts.PatternDetected)
	assert.Zero(t, report.Amounts.StabilityScore)
	assert.Equal(t, 3, report.Basic.UniqueAmounts)
}

func TestAnalyzeAccountUsage_DoesNotReorderInput(t *testing.T) {
	txns := monthlyRent(4)
	txns[0], txns[3] = txns[3], txns[0]
	first := txns[0].ID

	NewAnalyzer(nil).AnalyzeAccountUsage("5000", txns, nil, nil)

	assert.Equal(t, first, txns[0].ID)
}

func TestReportSummary(t *testing.T) {
	report := NewAnalyzer(nil).AnalyzeAccountUsage("5000", monthlyRent(5), nil, nil)
	summary := report.Summary()

	require.NotNil(t, summary)
	assert.Equal(t, "monthly", summary.Frequency)
	assert.Equal(t, 5, summary.TransactionCount)
	assert.InDelta(t, report.Confidence, summary.Confidence, 0)
}

func TestOrdinal(t *testing.T) {
	tests := map[int]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th",
		11: "11th", 12: "12th", 13: "13th",
		21: "21st", 22: "22nd", 23: "23rd", 31: "31st",
	}
	for day, want := range tests {
		assert.Equal(t, want, ordinal(day))
	}
}

func ptr[T any](v T) *T {
	return &v
}
