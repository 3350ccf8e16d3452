package common

import (
	"fmt"
	"regexp"
)

// CompileRulePattern compiles a user supplied rule pattern. Matching is
// case-insensitive unless the pattern sets its own flags.
func CompileRulePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidRule)
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	return re, nil
}

// MatchRegex compiles and matches a regex pattern against a string.
// Returns an error if the pattern is invalid.
func MatchRegex(pattern, text string) (bool, error) {
	re, err := CompileRulePattern(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}
