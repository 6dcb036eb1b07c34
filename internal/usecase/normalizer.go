package usecase

import (
	"regexp"
	"strings"
)

// Package-level compiled regex patterns for performance
var (
	// \s is ASCII-only in RE2; \p{Z} covers NBSP and the other Unicode spaces
	nonWordRegex        = regexp.MustCompile(`[^\p{L}\p{N}\s\p{Z}]`)
	multipleSpacesRegex = regexp.MustCompile(`[\s\p{Z}]+`)
)

// NormalizeText canonicalizes free text before comparison: lowercase, drop
// anything that is not a letter, digit or whitespace, collapse whitespace
// runs and trim. NormalizeText(NormalizeText(s)) == NormalizeText(s).
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = nonWordRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}
