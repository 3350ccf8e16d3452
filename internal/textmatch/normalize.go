// Package textmatch canonicalizes transaction descriptions and scores how
// alike two of them are.
package textmatch

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	boilerplatePrefix = regexp.MustCompile(`^(payment to |payment from |trans to |trans from )`)
	specialChars      = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	whitespace        = regexp.MustCompile(`\s+`)
	referenceSuffix   = regexp.MustCompile(`\s+\d+$`)
)

// maxPasses bounds the fixed-point loop. Every pass after the first either
// leaves the text unchanged or shortens it, so this is never reached in
// practice.
const maxPasses = 16

// Normalize returns the canonical form of a description: lowercased, with
// leading payment boilerplate, punctuation and a trailing reference number
// removed and whitespace collapsed. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	out := normalizePass(text)
	for range maxPasses {
		next := normalizePass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func normalizePass(text string) string {
	// Casers carry state and are not safe to share between goroutines.
	text = cases.Lower(language.Und).String(text)
	text = strings.TrimSpace(text)
	text = boilerplatePrefix.ReplaceAllString(text, "")
	text = specialChars.ReplaceAllString(text, "")
	text = whitespace.ReplaceAllString(text, " ")
	text = referenceSuffix.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
