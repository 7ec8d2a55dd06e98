package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Package-level compiled regex patterns for performance
var (
	nonCanonicalRegex   = regexp.MustCompile(`[^a-z0-9\s]+`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
)

// Normalize reduces free-text product titles to a canonical form used only
// for comparison, never for display: lowercase, diacritics stripped to their
// base letter, everything outside [a-z0-9 ] replaced by a space, whitespace
// collapsed. Total and idempotent: it never fails, and normalizing an already
// canonical string is a no-op.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	result := strings.ToLower(s)

	// NFD-decompose and drop combining marks so "café" folds to "cafe".
	// A transform chain is stateful, so build one per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripMarks, result); err == nil {
		result = folded
	}

	result = nonCanonicalRegex.ReplaceAllString(result, " ")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// tokenSet splits a canonical string into its set of space-separated tokens.
func tokenSet(canonical string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(canonical) {
		set[tok] = true
	}
	return set
}
