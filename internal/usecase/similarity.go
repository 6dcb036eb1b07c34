package usecase

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultTitleThreshold is the minimum similarity for two titles to be
// considered the same product.
const DefaultTitleThreshold = 0.85

// Similarity scores two already-normalized strings in [0,1] as
// (maxLen - editDistance) / maxLen, counting runes. Empty input scores 0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	dist := levenshtein.ComputeDistance(a, b)

	return float64(maxLen-dist) / float64(maxLen)
}
