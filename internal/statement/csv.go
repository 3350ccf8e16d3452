package statement

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Column names recognized in a CSV header, by field.
var csvHeaders = map[string][]string{
	"date":        {"date", "posted", "transaction date", "posting date"},
	"description": {"description", "memo", "payee", "details", "narrative"},
	"amount":      {"amount", "value"},
	"explanation": {"explanation", "note", "notes"},
	"account":     {"account", "category", "account code"},
	"id":          {"id", "external_id", "reference", "fitid"},
}

// Date layouts tried in order. Month-first wins over day-first.
var csvDateLayouts = []string{
	time.DateOnly,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	time.RFC3339,
}

// ErrMissingColumns is returned when a CSV header lacks a required column.
var ErrMissingColumns = errors.New("csv requires date, description and amount columns")

// CSVParser reads CSV exports. A header row is optional; without one the
// columns are date, description, amount.
type CSVParser struct {
	logger *slog.Logger
}

// NewCSVParser creates a CSV parser.
func NewCSVParser(logger *slog.Logger) *CSVParser {
	return &CSVParser{logger: common.LoggerOrDefault(logger)}
}

type csvLayout struct {
	columns map[string]int
	header  bool
}

func (l csvLayout) field(rec []string, name string) string {
	i, ok := l.columns[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// Parse reads every row of r. Malformed rows are reported in
// Batch.Problems and skipped.
func (p *CSVParser) Parse(ctx context.Context, r io.Reader) (Batch, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var batch Batch
	var layout *csvLayout
	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		line++
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			batch.Problems = append(batch.Problems, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if isBlank(rec) {
			continue
		}

		if layout == nil {
			l, err := detectLayout(rec)
			if err != nil {
				return Batch{}, err
			}
			layout = &l
			if l.header {
				continue
			}
		}

		txn, err := parseRow(*layout, rec)
		if err != nil {
			batch.Problems = append(batch.Problems, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		batch.Transactions = append(batch.Transactions, txn)
	}

	p.logger.Info("parsed CSV statement",
		"transactions", len(batch.Transactions),
		"skipped", len(batch.Problems))
	return batch, nil
}

// detectLayout treats the first row as a header when it names known
// columns. Otherwise the row is data in date, description, amount order.
func detectLayout(first []string) (csvLayout, error) {
	columns := make(map[string]int)
	for i, cell := range first {
		name := strings.ToLower(strings.TrimSpace(cell))
		for field, aliases := range csvHeaders {
			if _, taken := columns[field]; taken {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					columns[field] = i
				}
			}
		}
	}

	if len(columns) == 0 {
		if len(first) < 3 {
			return csvLayout{}, ErrMissingColumns
		}
		return csvLayout{columns: map[string]int{"date": 0, "description": 1, "amount": 2}}, nil
	}

	for _, required := range []string{"date", "description", "amount"} {
		if _, ok := columns[required]; !ok {
			return csvLayout{}, fmt.Errorf("%w: missing %s", ErrMissingColumns, required)
		}
	}
	return csvLayout{columns: columns, header: true}, nil
}

func parseRow(layout csvLayout, rec []string) (model.Transaction, error) {
	date, err := parseDate(layout.field(rec, "date"))
	if err != nil {
		return model.Transaction{}, err
	}
	amount, err := parseAmount(layout.field(rec, "amount"))
	if err != nil {
		return model.Transaction{}, err
	}

	id := layout.field(rec, "id")
	if id == "" {
		id = uuid.NewString()
	}

	txn := model.Transaction{
		ID:          id,
		Date:        date,
		Description: layout.field(rec, "description"),
		Amount:      amount,
		Explanation: layout.field(rec, "explanation"),
		AccountRef:  layout.field(rec, "account"),
	}
	if err := txn.Validate(); err != nil {
		return model.Transaction{}, err
	}
	return txn, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range csvDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseAmount accepts currency symbols, thousands separators and
// accounting-style parentheses for negatives.
func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		negative = true
		clean = strings.TrimSuffix(strings.TrimPrefix(clean, "("), ")")
	}
	clean = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(clean)

	amount, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

func isBlank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
