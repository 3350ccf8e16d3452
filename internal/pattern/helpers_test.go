package pattern

import (
	"time"

	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

var baseDate = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func txn(desc, amount string, daysAfter int, account string) model.Transaction {
	return model.Transaction{
		Date:        baseDate.AddDate(0, 0, daysAfter),
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
		AccountRef:  account,
	}
}

func monthly(desc, amount string, n int) []model.Transaction {
	out := make([]model.Transaction, 0, n)
	for i := range n {
		t := txn(desc, amount, 0, "")
		t.Date = baseDate.AddDate(0, i, 0)
		out = append(out, t)
	}
	return out
}

func series(intervals ...int) []model.SeriesPoint {
	points := []model.SeriesPoint{{Date: baseDate, Amount: 100}}
	date := baseDate
	for _, days := range intervals {
		date = date.AddDate(0, 0, days)
		points = append(points, model.SeriesPoint{Date: date, Amount: 100})
	}
	return points
}
