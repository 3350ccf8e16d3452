// Package testutil provides test fixtures: migrated databases, a small
// chart of accounts and recurring transaction histories.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/shopspring/decimal"
)

// TestDB represents a migrated test database.
type TestDB struct {
	Storage service.Storage
	Path    string
	t       *testing.T
}

// TestDBOptions configures SetupTestDB.
type TestDBOptions struct {
	CustomSetup func(context.Context, service.Storage) error
	// Path is the database file; empty means a private in-memory database.
	Path         string
	Accounts     model.Accounts
	Transactions []model.Transaction
}

// SetupTestDB creates and migrates a database, seeds it and closes it when
// the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.TestDBOptions{
//		Accounts:     testutil.Accounts(),
//		Transactions: testutil.Monthly("Office Rent Payment", "Rent Expense", -1500, 5),
//	})
func SetupTestDB(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	path := opts.Path
	if path == "" {
		path = ":memory:"
	}

	store, err := storage.NewSQLiteStorage(path, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for i := range opts.Accounts {
		if err := store.SaveAccount(ctx, &opts.Accounts[i]); err != nil {
			t.Fatalf("failed to seed account %q: %v", opts.Accounts[i].Code, err)
		}
	}

	if len(opts.Transactions) > 0 {
		if _, err := store.SaveTransactions(ctx, opts.Transactions); err != nil {
			t.Fatalf("failed to seed transactions: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{Storage: store, Path: path, t: t}
}

// MustHistory returns the booked history or fails the test.
func (db *TestDB) MustHistory() []model.Transaction {
	db.t.Helper()
	history, err := db.Storage.GetHistory(context.Background())
	if err != nil {
		db.t.Fatalf("failed to load history: %v", err)
	}
	return history
}

// BaseDate anchors generated histories.
var BaseDate = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

// Accounts returns a small expense chart of accounts.
func Accounts() model.Accounts {
	return model.Accounts{
		{Code: "5000", Name: "Rent Expense", Category: "Expenses"},
		{Code: "5100", Name: "Office Expenses", Category: "Expenses"},
		{Code: "5200", Name: "Meals Expense", Category: "Expenses"},
		{Code: "5300", Name: "Office Supplies", Category: "Expenses"},
		{Code: "5400", Name: "Salaries Expense", Category: "Expenses"},
	}
}

// Monthly returns n transactions one calendar month apart starting at
// BaseDate, booked to account.
func Monthly(description, account string, amount int64, n int) []model.Transaction {
	txns := make([]model.Transaction, 0, n)
	for i := 0; i < n; i++ {
		txns = append(txns, model.Transaction{
			ID:          fmt.Sprintf("%s-%d", account, i),
			Date:        BaseDate.AddDate(0, i, 0),
			Description: description,
			Amount:      decimal.NewFromInt(amount),
			AccountRef:  account,
		})
	}
	return txns
}
