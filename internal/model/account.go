package model

import (
	"errors"
	"strings"
)

// ErrIncompleteAccount is returned for accounts missing code, name or category.
var ErrIncompleteAccount = errors.New("account requires code, name and category")

// Account is a chart-of-accounts entry that suggestions may target.
type Account struct {
	Code        string
	Name        string
	Category    string // coarse grouping, e.g. "Expenses"
	Description string
}

// Validate ensures the account can be offered as a classification target.
func (a Account) Validate() error {
	if strings.TrimSpace(a.Code) == "" || strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.Category) == "" {
		return ErrIncompleteAccount
	}
	return nil
}

// Accounts is a chart of accounts.
type Accounts []Account

// Find returns the account whose name or code equals ref, ignoring case.
func (a Accounts) Find(ref string) (Account, bool) {
	ref = strings.TrimSpace(ref)
	for _, acct := range a {
		if strings.EqualFold(acct.Name, ref) || strings.EqualFold(acct.Code, ref) {
			return acct, true
		}
	}
	return Account{}, false
}
