package model

import (
	"strings"
	"time"
)

// KeywordRule maps a literal keyword or a regular expression to a category.
type KeywordRule struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Pattern   string    `json:"pattern"`
	Category  string    `json:"category"`
	ID        int       `json:"id"`
	Priority  int       `json:"priority"`
	IsRegex   bool      `json:"is_regex"`
	IsActive  bool      `json:"is_active"`
}

// NormalizeKeyword is the stored form of a literal keyword.
func NormalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// RuleStats summarizes the persisted rule set.
type RuleStats struct {
	CacheAge    time.Duration
	Total       int
	Active      int
	Regex       int
	Keyword     int
	CachedRules int
	Cached      bool
}
