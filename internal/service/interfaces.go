// Package service defines the persistence contract the command line and
// the rule service depend on.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/tally/internal/model"
)

// TransactionFilter narrows GetTransactions. Zero values match everything.
type TransactionFilter struct {
	From       *time.Time
	To         *time.Time
	AccountRef string
	Limit      int
	// Unbooked selects transactions with neither explanation nor account.
	Unbooked bool
	// Booked selects transactions with an explanation or an account.
	Booked bool
}

// RuleStorage persists keyword rules.
type RuleStorage interface {
	GetActiveKeywordRules(ctx context.Context) ([]model.KeywordRule, error)
	GetKeywordRule(ctx context.Context, id int) (*model.KeywordRule, error)
	CreateKeywordRule(ctx context.Context, rule *model.KeywordRule) error
	ListKeywordRules(ctx context.Context, includeInactive bool) ([]model.KeywordRule, error)
	DeactivateKeywordRule(ctx context.Context, id int) error
	UpdateKeywordRulePriority(ctx context.Context, id, priority int) error
}

// AccountStorage persists the chart of accounts.
type AccountStorage interface {
	SaveAccount(ctx context.Context, account *model.Account) error
	GetAccounts(ctx context.Context) (model.Accounts, error)
	GetAccount(ctx context.Context, ref string) (*model.Account, error)
	DeleteAccount(ctx context.Context, code string) error
}

// TransactionStorage persists imported and booked transactions.
type TransactionStorage interface {
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetHistory(ctx context.Context) ([]model.Transaction, error)
	BookTransaction(ctx context.Context, id, accountRef, explanation string) error
	GetTransactionCount(ctx context.Context) (int, error)
	GetTransactionDateRange(ctx context.Context) (time.Time, time.Time, error)
}

// Storage is the complete persistence layer.
type Storage interface {
	RuleStorage
	AccountStorage
	TransactionStorage

	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	Path() string
	Close() error
}
