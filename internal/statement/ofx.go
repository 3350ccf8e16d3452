package statement

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// An SGML opening tag alone on its line, missing its closing bracket.
	unclosedTagRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// OFXParser reads OFX and QFX statements.
type OFXParser struct {
	logger *slog.Logger
}

// NewOFXParser creates an OFX parser.
func NewOFXParser(logger *slog.Logger) *OFXParser {
	return &OFXParser{logger: common.LoggerOrDefault(logger)}
}

// preprocess fixes formatting issues common in bank exports.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return unclosedTagRegex.ReplaceAllString(content, "$1>")
}

// Parse reads bank and credit card statements from r. Amounts keep the OFX
// sign: debits are negative.
func (p *OFXParser) Parse(ctx context.Context, r io.Reader) (Batch, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Batch{}, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return Batch{}, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var batch Batch
	seen := make(map[string]bool)
	addAccount := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			batch.Accounts = append(batch.Accounts, id)
		}
	}

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		addAccount(string(stmt.BankAcctFrom.AcctID))
		if stmt.BankTranList != nil {
			p.convertAll(&batch, stmt.BankTranList.Transactions)
		}
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		addAccount(string(stmt.CCAcctFrom.AcctID))
		if stmt.BankTranList != nil {
			p.convertAll(&batch, stmt.BankTranList.Transactions)
		}
	}

	p.logger.Info("parsed OFX statement",
		"transactions", len(batch.Transactions),
		"skipped", len(batch.Problems),
		"accounts", len(batch.Accounts))
	return batch, nil
}

func (p *OFXParser) convertAll(batch *Batch, txns []ofxgo.Transaction) {
	for _, ofxTx := range txns {
		txn, err := convertTransaction(ofxTx)
		if err != nil {
			batch.Problems = append(batch.Problems, fmt.Errorf("FITID %s: %w", ofxTx.FiTID, err))
			continue
		}
		batch.Transactions = append(batch.Transactions, txn)
	}
}

func convertTransaction(ofxTx ofxgo.Transaction) (model.Transaction, error) {
	amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(2))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid amount: %w", err)
	}

	id := string(ofxTx.FiTID)
	if id == "" {
		id = uuid.NewString()
	}

	txn := model.Transaction{
		ID:          id,
		Date:        ofxTx.DtPosted.UTC(),
		Description: cleanDescription(ofxTx),
		Amount:      amount,
	}
	if err := txn.Validate(); err != nil {
		return model.Transaction{}, err
	}
	return txn, nil
}

// Card processors prefix descriptions with these.
var descriptionPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

var genericDescriptions = map[string]bool{
	"DEBIT":           true,
	"CREDIT":          true,
	"PURCHASE":        true,
	"PAYMENT":         true,
	"POS TRANSACTION": true,
	"CARD PURCHASE":   true,
}

// cleanDescription prefers the payee, falls back to the memo when the name
// is generic, and strips processor prefixes and leading MM/DD dates.
func cleanDescription(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && (name == "" || genericDescriptions[strings.ToUpper(name)]) {
		name = strings.TrimSpace(string(tx.Memo))
	}

	upper := strings.ToUpper(name)
	for _, prefix := range descriptionPrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}

	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}
	return name
}
