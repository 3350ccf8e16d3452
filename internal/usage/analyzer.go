// Package usage profiles how an account is used over time: how often it is
// booked to, how regular the gaps are and how stable the amounts stay.
package usage

import (
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/stats"
)

const (
	// MinDataPoints is the smallest sample that gets a full report.
	MinDataPoints = 3
	// SignificanceThreshold is the share a histogram peak must exceed to
	// count as a pattern.
	SignificanceThreshold = 0.1

	intervalGroupWidth = 0.1
	amountGroupWidth   = 0.01
)

// Status reports whether a report carries analysis.
type Status string

// Report statuses.
const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
)

// Frequency buckets transactions per day.
type Frequency string

// Usage frequency buckets.
const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyIrregular Frequency = "irregular"
	FrequencySingleDay Frequency = "single_day"
)

// Transactions-per-day floors for each bucket.
const (
	dailyFloor   = 0.9
	weeklyFloor  = 0.15
	monthlyFloor = 0.03
)

// DateRange is the span covered by the analyzed transactions.
type DateRange struct {
	Start time.Time
	End   time.Time
	Days  int
}

// BasicStats summarises the amounts.
type BasicStats struct {
	Mean          float64
	Median        float64
	StdDev        float64
	Min           float64
	Max           float64
	TotalVolume   float64
	UniqueAmounts int
}

// IntervalPattern is the dominant gap between consecutive transactions.
type IntervalPattern struct {
	CommonInterval  float64
	PatternStrength float64
	Variations      int
	Detected        bool
}

// PeakPattern is the most common value of a calendar histogram (hour,
// weekday or day of month).
type PeakPattern struct {
	Label           string
	Value           int
	PatternStrength float64
	Detected        bool
}

// TemporalPatterns groups the timing analyses.
type TemporalPatterns struct {
	Interval        IntervalPattern
	Daily           PeakPattern
	Weekly          PeakPattern
	Monthly         PeakPattern
	Regularity      float64
	PatternDetected bool
}

// AmountPatterns describes the dominant amount.
type AmountPatterns struct {
	CommonAmount    float64
	PatternStrength float64
	StabilityScore  float64
	Variations      int
	PatternDetected bool
}

// UsageFrequency is how densely the account is used.
type UsageFrequency struct {
	Type               Frequency
	TransactionsPerDay float64
	ActivityDays       int
	TotalDays          int
}

// Report is the result of AnalyzeAccountUsage.
type Report struct {
	DateRange        DateRange
	AccountID        string
	Status           Status
	Frequency        UsageFrequency
	Temporal         TemporalPatterns
	Amounts          AmountPatterns
	Basic            BasicStats
	TransactionCount int
	Confidence       float64
}

// Summary condenses the report for attaching to a suggestion.
func (r Report) Summary() *model.UsageSummary {
	return &model.UsageSummary{
		Frequency:        string(r.Frequency.Type),
		TransactionCount: r.TransactionCount,
		Confidence:       r.Confidence,
	}
}

// Analyzer computes account usage reports. It holds no mutable state.
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: common.LoggerOrDefault(logger)}
}

// AnalyzeAccountUsage profiles the transactions booked to accountID within
// [start, end]. An empty accountID analyzes every transaction given; nil
// bounds are open.
func (a *Analyzer) AnalyzeAccountUsage(accountID string, transactions []model.Transaction, start, end *time.Time) Report {
	selected := filter(accountID, transactions, start, end)
	report := Report{
		AccountID:        accountID,
		Status:           StatusInsufficientData,
		TransactionCount: len(selected),
	}
	if len(selected) < MinDataPoints {
		a.logger.Debug("insufficient account usage data",
			"account", accountID,
			"transactions", len(selected))
		return report
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Date.Before(selected[j].Date)
	})

	dates := make([]time.Time, len(selected))
	amounts := make([]float64, len(selected))
	for i, txn := range selected {
		dates[i] = txn.Date
		amounts[i] = txn.Float()
	}

	report.Status = StatusOK
	report.DateRange = DateRange{
		Start: dates[0],
		End:   dates[len(dates)-1],
		Days:  wholeDays(dates[len(dates)-1].Sub(dates[0])),
	}
	report.Basic = basicStats(amounts)
	report.Temporal = temporalPatterns(dates)
	report.Amounts = amountPatterns(amounts)
	report.Frequency = usageFrequency(dates)
	report.Confidence = confidence(report)

	a.logger.Debug("analyzed account usage",
		"account", accountID,
		"transactions", report.TransactionCount,
		"frequency", report.Frequency.Type,
		"confidence", report.Confidence)
	return report
}

func filter(accountID string, transactions []model.Transaction, start, end *time.Time) []model.Transaction {
	out := make([]model.Transaction, 0, len(transactions))
	for _, txn := range transactions {
		if txn.Date.IsZero() {
			continue
		}
		if accountID != "" && txn.AccountRef != accountID {
			continue
		}
		if start != nil && txn.Date.Before(*start) {
			continue
		}
		if end != nil && txn.Date.After(*end) {
			continue
		}
		out = append(out, txn)
	}
	return out
}

func basicStats(amounts []float64) BasicStats {
	lo, hi := stats.MinMax(amounts)
	unique := make(map[float64]struct{}, len(amounts))
	total := 0.0
	for _, v := range amounts {
		unique[v] = struct{}{}
		total += v
	}
	return BasicStats{
		Mean:          stats.Mean(amounts),
		Median:        stats.Median(amounts),
		StdDev:        stats.SampleStdDev(amounts),
		Min:           lo,
		Max:           hi,
		TotalVolume:   total,
		UniqueAmounts: len(unique),
	}
}

func temporalPatterns(dates []time.Time) TemporalPatterns {
	intervals := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		intervals = append(intervals, float64(wholeDays(dates[i].Sub(dates[i-1]))))
	}
	if len(intervals) == 0 {
		return TemporalPatterns{}
	}

	result := TemporalPatterns{
		Interval: intervalPattern(intervals),
		Daily: peak(dates, func(d time.Time) (int, string) {
			return d.Hour(), time.Date(0, 1, 1, d.Hour(), 0, 0, 0, time.UTC).Format("15:04")
		}),
		Weekly: peak(dates, func(d time.Time) (int, string) {
			return int(d.Weekday()), d.Weekday().String()
		}),
		Monthly: peak(dates, func(d time.Time) (int, string) {
			return d.Day(), ordinal(d.Day())
		}),
		Regularity: stability(intervals),
	}
	result.PatternDetected = result.Interval.Detected ||
		result.Daily.Detected ||
		result.Weekly.Detected ||
		result.Monthly.Detected
	return result
}

func intervalPattern(intervals []float64) IntervalPattern {
	avg := stats.Mean(intervals)
	if avg == 0 {
		return IntervalPattern{}
	}
	largest, variations := largestGroup(intervals, avg*intervalGroupWidth)
	strength := float64(len(largest)) / float64(len(intervals))
	return IntervalPattern{
		CommonInterval:  stats.Round(stats.Mean(largest), 1),
		PatternStrength: strength,
		Variations:      variations,
		Detected:        strength > SignificanceThreshold,
	}
}

func amountPatterns(amounts []float64) AmountPatterns {
	avg := stats.Mean(amounts)
	if avg == 0 {
		return AmountPatterns{}
	}
	largest, variations := largestGroup(amounts, avg*amountGroupWidth)
	strength := float64(len(largest)) / float64(len(amounts))
	return AmountPatterns{
		CommonAmount:    stats.Round(stats.Mean(largest), 2),
		PatternStrength: strength,
		StabilityScore:  stability(amounts),
		Variations:      variations,
		PatternDetected: strength > SignificanceThreshold,
	}
}

// stability is 1 minus the coefficient of variation, clamped and rounded to
// two places. A zero mean scores zero.
func stability(values []float64) float64 {
	avg := stats.Mean(values)
	if avg == 0 {
		return 0
	}
	return stats.Round(stats.Clamp01(1-stats.SampleStdDev(values)/math.Abs(avg)), 2)
}

// largestGroup buckets values to multiples of width and returns the most
// populated bucket (lowest key on ties) with the number of buckets.
func largestGroup(values []float64, width float64) ([]float64, int) {
	groups := make(map[float64][]float64)
	for _, v := range values {
		key := stats.Bucket(v, width)
		groups[key] = append(groups[key], v)
	}

	keys := make([]float64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	var largest []float64
	for _, k := range keys {
		if len(groups[k]) > len(largest) {
			largest = groups[k]
		}
	}
	return largest, len(groups)
}

func peak(dates []time.Time, key func(time.Time) (int, string)) PeakPattern {
	counts := make(map[int]int)
	labels := make(map[int]string)
	for _, d := range dates {
		k, label := key(d)
		counts[k]++
		labels[k] = label
	}

	best, bestCount := 0, 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	strength := float64(bestCount) / float64(len(dates))
	return PeakPattern{
		Label:           labels[best],
		Value:           best,
		PatternStrength: strength,
		Detected:        strength > SignificanceThreshold,
	}
}

func usageFrequency(dates []time.Time) UsageFrequency {
	if len(dates) < 2 {
		return UsageFrequency{Type: FrequencyIrregular}
	}
	days := wholeDays(dates[len(dates)-1].Sub(dates[0]))
	if days == 0 {
		return UsageFrequency{Type: FrequencySingleDay}
	}

	active := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		active[d.Format(time.DateOnly)] = struct{}{}
	}

	tpd := float64(len(dates)) / float64(days)
	result := UsageFrequency{
		TransactionsPerDay: stats.Round(tpd, 3),
		ActivityDays:       len(active),
		TotalDays:          days,
	}
	switch {
	case tpd >= dailyFloor:
		result.Type = FrequencyDaily
	case tpd >= weeklyFloor:
		result.Type = FrequencyWeekly
	case tpd >= monthlyFloor:
		result.Type = FrequencyMonthly
	default:
		result.Type = FrequencyIrregular
	}
	return result
}

func confidence(r Report) float64 {
	var scores []float64
	if r.Amounts.PatternDetected {
		scores = append(scores, r.Amounts.PatternStrength)
	}
	if r.Temporal.PatternDetected {
		scores = append(scores, r.Temporal.Regularity)
	}
	switch r.Frequency.Type {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		scores = append(scores, math.Min(1, r.Frequency.TransactionsPerDay*5))
	}
	if len(scores) == 0 {
		return 0
	}
	return stats.Round(stats.Mean(scores), 2)
}

func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

func ordinal(day int) string {
	suffix := "th"
	switch {
	case day%100 >= 11 && day%100 <= 13:
	case day%10 == 1:
		suffix = "st"
	case day%10 == 2:
		suffix = "nd"
	case day%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(day) + suffix
}
