package llm

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// System prompts sent with every request of each kind.
const (
	accountSystemPrompt     = "You are a financial account classification expert. You MUST respond with ONLY valid JSON."
	explanationSystemPrompt = "You are a financial transaction analyst. You MUST respond with ONLY valid JSON."
)

const (
	accountTemplate     = "account_suggestion.tmpl"
	explanationTemplate = "explanation.tmpl"
)

// promptBuilder renders the embedded request templates.
type promptBuilder struct {
	templates *template.Template
}

func newPromptBuilder() (*promptBuilder, error) {
	funcMap := template.FuncMap{
		"formatAmount": formatAmount,
		"truncate":     truncateWords,
	}

	tmpl, err := template.New("prompts").Funcs(funcMap).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}
	return &promptBuilder{templates: tmpl}, nil
}

type accountPromptData struct {
	Description    string
	Explanation    string
	Amount         decimal.Decimal
	Accounts       model.Accounts
	MaxSuggestions int
}

func (d accountPromptData) HasAmount() bool {
	return !d.Amount.IsZero()
}

type explanationPromptData struct {
	Description string
	Similar     []model.Transaction
}

func (b *promptBuilder) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := b.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatAmount(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-$" + amount.Abs().StringFixed(2)
	}
	return "$" + amount.StringFixed(2)
}

// truncateWords is truncate with the argument order templates pipe into.
func truncateWords(n int, s string) string {
	return truncate(s, n)
}
