// Package statement reads bank statements (OFX/QFX and CSV) into
// transactions ready for storage.
package statement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Veraticus/tally/internal/model"
)

// Batch is the outcome of parsing one statement.
type Batch struct {
	Transactions []model.Transaction
	// Problems lists rows that were skipped, with their cause.
	Problems []error
	// Accounts lists the bank account identifiers found in the statement.
	Accounts []string
}

// Parser turns a statement into transactions.
type Parser interface {
	Parse(ctx context.Context, r io.Reader) (Batch, error)
}

// ErrUnsupportedFormat is returned for files without a known extension.
var ErrUnsupportedFormat = errors.New("unsupported statement format")

// ForFile picks a parser from the file extension.
func ForFile(path string, logger *slog.Logger) (Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ofx", ".qfx":
		return NewOFXParser(logger), nil
	case ".csv":
		return NewCSVParser(logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Book sets the account reference on every transaction in b that has none.
// Importing already-booked history uses it.
func (b *Batch) Book(accountRef string) {
	if accountRef == "" {
		return
	}
	for i := range b.Transactions {
		if b.Transactions[i].AccountRef == "" {
			b.Transactions[i].AccountRef = accountRef
		}
	}
}
