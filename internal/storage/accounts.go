package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// SaveAccount inserts or replaces the account with the same code. Names are
// unique without regard to case.
func (s *SQLiteStorage) SaveAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (code, name, category, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			description = excluded.description
	`, account.Code, account.Name, account.Category, account.Description)
	if isUniqueViolation(err) {
		return fmt.Errorf("account name %q: %w", account.Name, common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// GetAccounts returns the chart of accounts ordered by code.
func (s *SQLiteStorage) GetAccounts(ctx context.Context) (model.Accounts, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, category, description
		FROM accounts
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts model.Accounts
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.Code, &a.Name, &a.Category, &a.Description); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// GetAccount returns the account whose code or name equals ref, ignoring
// case.
func (s *SQLiteStorage) GetAccount(ctx context.Context, ref string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ref, "ref"); err != nil {
		return nil, err
	}

	var a model.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT code, name, category, description
		FROM accounts
		WHERE code = ? COLLATE NOCASE OR name = ?
		LIMIT 1
	`, ref, ref).Scan(&a.Code, &a.Name, &a.Category, &a.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %q: %w", ref, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// DeleteAccount removes an account by code. Transactions booked against it
// keep their reference.
func (s *SQLiteStorage) DeleteAccount(ctx context.Context, code string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %q: %w", code, common.ErrNotFound)
	}
	return nil
}
