package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/tally/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestDB_Seeds(t *testing.T) {
	called := false
	db := SetupTestDB(t, TestDBOptions{
		Accounts:     Accounts(),
		Transactions: Monthly("Office Rent Payment", "Rent Expense", -1500, 4),
		CustomSetup: func(_ context.Context, _ service.Storage) error {
			called = true
			return nil
		},
	})

	assert.True(t, called)
	assert.Equal(t, ":memory:", db.Path)

	accounts, err := db.Storage.GetAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, len(Accounts()))

	history := db.MustHistory()
	require.Len(t, history, 4)
	assert.Equal(t, BaseDate.AddDate(0, 3, 0), history[3].Date)
}

func TestSetupTestDB_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.db")
	db := SetupTestDB(t, TestDBOptions{Path: path})

	version, err := db.Storage.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Positive(t, version)
	assert.Equal(t, path, db.Storage.Path())
}
