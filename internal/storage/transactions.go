package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

const transactionColumns = `id, date, description, amount, explanation, account_ref`

// SaveTransactions stores transactions, skipping any whose hash already
// exists. It returns how many were inserted.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateTransactions(transactions); err != nil {
		return 0, err
	}

	inserted := 0
	err := s.WithTx(ctx, func(q queryable) error {
		n, err := saveTransactions(ctx, q, transactions)
		inserted = n
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("saved transactions", "received", len(transactions), "inserted", inserted)
	return inserted, nil
}

func saveTransactions(ctx context.Context, q queryable, transactions []model.Transaction) (int, error) {
	inserted := 0
	for _, txn := range transactions {
		result, err := q.ExecContext(ctx, `
			INSERT OR IGNORE INTO transactions (id, hash, date, description, amount, explanation, account_ref)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, txn.ID, txn.GenerateHash(), txn.Date.UTC(), txn.Description,
			txn.Amount.String(), txn.Explanation, txn.AccountRef)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to check insert result: %w", err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

// GetTransactionByID returns one transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	txns, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return &txns[0], nil
}

// GetTransactions returns transactions matching filter, oldest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidDateRange,
			filter.From.Format(time.DateOnly), filter.To.Format(time.DateOnly))
	}

	var where []string
	var args []any
	if filter.From != nil {
		where = append(where, "date >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		where = append(where, "date <= ?")
		args = append(args, filter.To.UTC())
	}
	if filter.AccountRef != "" {
		where = append(where, "account_ref = ? COLLATE NOCASE")
		args = append(args, filter.AccountRef)
	}
	if filter.Unbooked {
		where = append(where, "explanation = '' AND account_ref = ''")
	}
	if filter.Booked {
		where = append(where, "(explanation != '' OR account_ref != '')")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	return scanTransactions(rows)
}

// GetHistory returns every booked transaction, the input the pattern
// matcher and usage analyzer learn from.
func (s *SQLiteStorage) GetHistory(ctx context.Context) ([]model.Transaction, error) {
	return s.GetTransactions(ctx, service.TransactionFilter{Booked: true})
}

// BookTransaction records the account and explanation chosen for a
// transaction. Empty arguments keep the stored values.
func (s *SQLiteStorage) BookTransaction(ctx context.Context, id, accountRef, explanation string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if strings.TrimSpace(accountRef) == "" && strings.TrimSpace(explanation) == "" {
		return fmt.Errorf("%w: account or explanation", ErrEmptyString)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			account_ref = CASE WHEN ? != '' THEN ? ELSE account_ref END,
			explanation = CASE WHEN ? != '' THEN ? ELSE explanation END,
			booked_at = ?
		WHERE id = ?
	`, accountRef, accountRef, explanation, explanation, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to book transaction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetTransactionCount returns the number of stored transactions.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// GetTransactionDateRange returns the earliest and latest transaction dates.
func (s *SQLiteStorage) GetTransactionDateRange(ctx context.Context) (time.Time, time.Time, error) {
	if err := validateContext(ctx); err != nil {
		return time.Time{}, time.Time{}, err
	}

	var first, last sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MIN(date), MAX(date) FROM transactions`).Scan(&first, &last)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to get date range: %w", err)
	}
	if !first.Valid || !last.Valid {
		return time.Time{}, time.Time{}, fmt.Errorf("transactions: %w", common.ErrNotFound)
	}

	start, err := parseStoredTime(first.String)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseStoredTime(last.String)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// storedTimeLayouts are the layouts the sqlite3 driver writes time.Time in.
var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseStoredTime parses aggregate results, which the driver returns as
// text rather than time.Time.
func parseStoredTime(s string) (time.Time, error) {
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range storedTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized stored time %q", s)
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		if err := rows.Scan(
			&txn.ID, &txn.Date, &txn.Description, &txn.Amount, &txn.Explanation, &txn.AccountRef,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Date = txn.Date.UTC()
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}
