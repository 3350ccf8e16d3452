package pattern

import (
	"math"
	"sort"
	"time"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/stats"
)

// Reference intervals in days.
var intervalTypes = []struct {
	name string
	days float64
}{
	{"daily", 1},
	{"weekly", 7},
	{"biweekly", 14},
	{"monthly", 30},
	{"quarterly", 90},
	{"yearly", 365},
}

// IntervalAnalysis compares observed gaps with the reference intervals.
type IntervalAnalysis struct {
	Scores          map[string]float64
	IntervalType    string
	AverageInterval float64
	Regularity      float64
	TypeConfidence  float64
}

// AmountConsistency describes the dominant amount in a set of transactions.
type AmountConsistency struct {
	Consistency  float64
	CommonAmount float64
	Variations   int
}

// HistoricalConfidence scores how trustworthy a set of related transactions
// is as a basis for prediction.
type HistoricalConfidence struct {
	FirstDate       time.Time
	LastDate        time.Time
	Intervals       *IntervalAnalysis
	Amounts         *AmountConsistency
	Count           int
	RangeDays       int
	FrequencyScore  float64
	AmountStability float64
	Confidence      float64
}

// CalculateHistoricalConfidence blends interval regularity, amount stability,
// sample size and amount consistency.
func CalculateHistoricalConfidence(transactions []model.Transaction) HistoricalConfidence {
	result := HistoricalConfidence{Count: len(transactions)}
	if len(transactions) == 0 {
		return result
	}

	amounts := make([]float64, 0, len(transactions))
	var dates []time.Time
	for _, txn := range transactions {
		amounts = append(amounts, txn.Float())
		if !txn.Date.IsZero() {
			dates = append(dates, txn.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	if len(dates) > 0 {
		result.FirstDate = dates[0]
		result.LastDate = dates[len(dates)-1]
		result.RangeDays = int(wholeDays(result.LastDate.Sub(result.FirstDate).Hours()))
		if result.RangeDays > 0 && len(dates) > 1 {
			avgGap := float64(result.RangeDays) / float64(len(dates)-1)
			result.FrequencyScore = math.Min(1, 30/avgGap)
		}
	}

	if len(amounts) > 1 {
		avg := stats.Mean(amounts)
		if avg != 0 {
			result.AmountStability = stats.Clamp01(1 - stats.SampleStdDev(amounts)/math.Abs(avg))
		}
		result.Amounts = amountConsistency(amounts, avg)
	}

	if len(dates) > 1 {
		intervals := make([]float64, 0, len(dates)-1)
		for i := 1; i < len(dates); i++ {
			intervals = append(intervals, wholeDays(dates[i].Sub(dates[i-1]).Hours()))
		}
		result.Intervals = analyzeIntervals(intervals)
		if result.Intervals.IntervalType != "" {
			result.FrequencyScore = result.Intervals.Regularity
		}
	}

	consistency := 0.0
	if result.Amounts != nil {
		consistency = result.Amounts.Consistency
	}
	result.Confidence = stats.Clamp01(result.FrequencyScore*0.35 +
		result.AmountStability*0.35 +
		math.Min(1, float64(result.Count)/10)*0.2 +
		consistency*0.1)
	return result
}

// amountConsistency buckets amounts to 1% of the mean and reports the
// largest bucket.
func amountConsistency(amounts []float64, avg float64) *AmountConsistency {
	groups := make(map[float64][]float64)
	for _, a := range amounts {
		key := stats.Bucket(a, avg*0.01)
		groups[key] = append(groups[key], a)
	}

	var largest []float64
	for _, keyed := range sortedGroups(groups) {
		if len(keyed) > len(largest) {
			largest = keyed
		}
	}

	return &AmountConsistency{
		Consistency:  float64(len(largest)) / float64(len(amounts)),
		CommonAmount: math.Round(stats.Mean(largest)*100) / 100,
		Variations:   len(groups),
	}
}

func analyzeIntervals(intervals []float64) *IntervalAnalysis {
	avg := stats.Mean(intervals)
	result := &IntervalAnalysis{
		AverageInterval: math.Round(avg*10) / 10,
		Scores:          make(map[string]float64, len(intervalTypes)),
	}

	groups := make(map[float64]int)
	for _, interval := range intervals {
		groups[stats.Bucket(interval, avg)]++

		for _, it := range intervalTypes {
			similarity := 1 - math.Min(math.Abs(interval-it.days)/math.Max(it.days, interval), 1)
			result.Scores[it.name] = math.Max(result.Scores[it.name], similarity)
		}
	}

	for _, it := range intervalTypes {
		if score := result.Scores[it.name]; score > result.TypeConfidence {
			result.IntervalType = it.name
			result.TypeConfidence = score
		}
	}

	largest := 0
	for _, size := range groups {
		largest = max(largest, size)
	}
	result.Regularity = float64(largest) / float64(len(intervals))
	return result
}

func sortedGroups(groups map[float64][]float64) [][]float64 {
	keys := make([]float64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	out := make([][]float64, 0, len(keys))
	for _, k := range keys {
		out = append(out, groups[k])
	}
	return out
}
