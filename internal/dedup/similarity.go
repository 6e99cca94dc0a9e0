// Package dedup decides whether a normalized transaction was already stored.
package dedup

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/insightdelivered/statement-ingest/internal/normalize"
)

// canonical folds case and accents, drops punctuation and collapses whitespace.
func canonical(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, normalize.Fold(s))
	return strings.Join(strings.Fields(s), " ")
}

// Similarity scores two descriptions from 0 to 100 by edit distance over
// their canonical forms. It is symmetric and identical inputs score 100.
func Similarity(a, b string) int {
	a, b = canonical(a), canonical(b)
	if a == b {
		return 100
	}

	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	dist := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * (1 - float64(dist)/float64(longest))))
}
