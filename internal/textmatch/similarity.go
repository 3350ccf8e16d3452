package textmatch

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// minLengthRatio is the shortest/longest length ratio below which two
// strings are not compared at all.
const minLengthRatio = 0.5

// Similarity scores two normalized strings in [0,1] using Levenshtein
// distance relative to the longer string, dampened by the length ratio.
// The score is symmetric.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	lenA, lenB := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	shorter, longer := float64(min(lenA, lenB)), float64(max(lenA, lenB))

	ratio := shorter / longer
	if ratio < minLengthRatio {
		return 0.0
	}

	distance := float64(levenshtein.ComputeDistance(a, b))
	score := (1 - distance/longer) * (0.8 + 0.2*ratio)

	return min(max(score, 0), 1)
}
