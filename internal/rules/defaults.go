package rules

import "github.com/Veraticus/tally/internal/model"

// DefaultRules returns the rule set seeded into an empty store.
func DefaultRules() []model.KeywordRule {
	return []model.KeywordRule{
		// Literal keywords
		{Pattern: "office", Category: "Office Expenses", Priority: 85, IsActive: true},
		{Pattern: "rent", Category: "Rent Expense", Priority: 90, IsActive: true},
		{Pattern: "salary", Category: "Salaries Expense", Priority: 90, IsActive: true},
		{Pattern: "utilities", Category: "Utilities Expense", Priority: 85, IsActive: true},
		{Pattern: "phone", Category: "Telephone Expense", Priority: 80, IsActive: true},
		{Pattern: "insurance", Category: "Insurance Expense", Priority: 85, IsActive: true},
		{Pattern: "internet", Category: "Internet Expense", Priority: 80, IsActive: true},

		// Regular expressions
		{
			Pattern:  `\b(payroll|direct\s*dep|wages)\b`,
			Category: "Salaries Expense",
			Priority: 95,
			IsRegex:  true,
			IsActive: true,
		},
		{
			Pattern:  `\b(interest|int\s*earned|dividend)\b`,
			Category: "Interest Income",
			Priority: 90,
			IsRegex:  true,
			IsActive: true,
		},
		{
			Pattern:  `\b(electric|water|gas)\s*(co|bill|utility)\b`,
			Category: "Utilities Expense",
			Priority: 70,
			IsRegex:  true,
			IsActive: true,
		},
		{
			Pattern:  `\b(bank|service|monthly)\s*(fee|charge)s?\b`,
			Category: "Bank Charges",
			Priority: 60,
			IsRegex:  true,
			IsActive: true,
		},
	}
}
