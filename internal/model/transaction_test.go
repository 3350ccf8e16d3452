package model

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransaction_Validate(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		wantErr error
		name    string
		txn     Transaction
	}{
		{name: "valid", txn: Transaction{Date: date, Description: "Office Rent"}},
		{name: "missing date", txn: Transaction{Description: "Office Rent"}, wantErr: ErrMissingDate},
		{name: "missing description", txn: Transaction{Date: date}, wantErr: ErrMissingDescription},
		{
			name:    "too long",
			txn:     Transaction{Date: date, Description: strings.Repeat("x", MaxDescriptionLength+1)},
			wantErr: ErrDescriptionTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.txn.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransaction_GenerateHash(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := Transaction{Date: date, Amount: decimal.RequireFromString("-1500"), Description: "Office Rent"}
	b := Transaction{Date: date, Amount: decimal.RequireFromString("-1500.00"), Description: "Office Rent"}
	c := Transaction{Date: date, Amount: decimal.RequireFromString("-1500.01"), Description: "Office Rent"}

	assert.Equal(t, a.GenerateHash(), b.GenerateHash())
	assert.NotEqual(t, a.GenerateHash(), c.GenerateHash())
}

func TestTransaction_Target(t *testing.T) {
	assert.Equal(t, "Rent Expense", Transaction{AccountRef: "Rent Expense", Explanation: "rent"}.Target())
	assert.Equal(t, "rent", Transaction{Explanation: "rent"}.Target())
}

func TestAccounts_Find(t *testing.T) {
	accounts := Accounts{{Code: "6100", Name: "Rent Expense", Category: "Expenses"}}

	acct, ok := accounts.Find("rent expense")
	assert.True(t, ok)
	assert.Equal(t, "6100", acct.Code)

	_, ok = accounts.Find("6100")
	assert.True(t, ok)

	_, ok = accounts.Find("Travel")
	assert.False(t, ok)

	assert.ErrorIs(t, Account{Name: "x"}.Validate(), ErrIncompleteAccount)
}
