// Package model defines the value types exchanged with the suggestion engine.
package model

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MaxDescriptionLength bounds Transaction.Description.
const MaxDescriptionLength = 200

// Transaction validation errors.
var (
	ErrMissingDate        = errors.New("transaction date is required")
	ErrMissingDescription = errors.New("transaction description is required")
	ErrDescriptionTooLong = errors.New("transaction description too long")
)

// Transaction is a historical or incoming bank line. Positive amounts are
// credits, negative amounts are debits.
type Transaction struct {
	Date        time.Time
	Amount      decimal.Decimal
	ID          string
	Description string
	Explanation string // previously assigned explanation, if any
	AccountRef  string // account code or name the line was booked against
}

// Float returns the amount as a float64 for statistics.
func (t Transaction) Float() float64 {
	return t.Amount.InexactFloat64()
}

// Target is the label a historical transaction contributes as a suggestion:
// its booked account when known, otherwise its explanation.
func (t Transaction) Target() string {
	if t.AccountRef != "" {
		return t.AccountRef
	}
	return t.Explanation
}

// Validate checks the fields importers and storage rely on.
func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	if t.Description == "" {
		return ErrMissingDescription
	}
	if len([]rune(t.Description)) > MaxDescriptionLength {
		return fmt.Errorf("%w: %d characters", ErrDescriptionTooLong, len([]rune(t.Description)))
	}
	return nil
}

// GenerateHash creates a unique hash for duplicate detection.
func (t Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		t.Description)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
