// Package tabular turns delimited text and spreadsheets into transaction candidates.
package tabular

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-ingest/internal/models"
	"github.com/insightdelivered/statement-ingest/internal/normalize"
)

// Delimiter is a field separator. DelimiterWhitespace means runs of two or more blanks.
type Delimiter rune

const (
	DelimiterComma      Delimiter = ','
	DelimiterSemicolon  Delimiter = ';'
	DelimiterTab        Delimiter = '\t'
	DelimiterWhitespace Delimiter = ' '
)

func (d Delimiter) String() string {
	switch d {
	case DelimiterComma:
		return "comma"
	case DelimiterSemicolon:
		return "semicolon"
	case DelimiterTab:
		return "tab"
	case DelimiterWhitespace:
		return "whitespace"
	default:
		return string(rune(d))
	}
}

// DetectDelimiter picks the most frequent of tab, semicolon and comma in line.
// Ties go to tab, then semicolon. No delimiter at all means comma.
func DetectDelimiter(line string) Delimiter {
	return mostFrequent(line, DelimiterComma, DelimiterTab, DelimiterSemicolon, DelimiterComma)
}

// DetectPasteDelimiter is DetectDelimiter for pasted text. Commas are ignored
// because amounts carry a decimal comma; without tab or semicolon the line is
// split on runs of whitespace.
func DetectPasteDelimiter(line string) Delimiter {
	return mostFrequent(line, DelimiterWhitespace, DelimiterTab, DelimiterSemicolon)
}

func mostFrequent(line string, fallback Delimiter, candidates ...Delimiter) Delimiter {
	best, bestCount := fallback, 0
	for _, d := range candidates {
		if n := strings.Count(line, string(rune(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

var multiSpace = regexp.MustCompile(`[ \t\x{00A0}]{2,}`)

// Split cuts line on d and cleans every field.
func Split(line string, d Delimiter) []string {
	var parts []string
	if d == DelimiterWhitespace {
		parts = multiSpace.Split(strings.TrimSpace(line), -1)
	} else {
		parts = strings.Split(line, string(rune(d)))
	}
	return cleanFields(parts)
}

func cleanFields(parts []string) []string {
	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = cleanField(p)
	}
	return fields
}

// cleanField trims blanks and one pair of surrounding quotes.
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// Layout is the column order of a six-field row.
type Layout int

const (
	// LayoutA is date, description, type, category, bank, amount.
	LayoutA Layout = iota
	// LayoutB is date, description, amount, type, bank, category.
	LayoutB
)

func (l Layout) String() string {
	if l == LayoutB {
		return "LayoutB"
	}
	return "LayoutA"
}

var currencyLike = regexp.MustCompile(`^[-+(]?\s*(?:R\$|\$)?\s*[-+]?\d[\d.,]*\)?-?$`)

// IsCurrencyLike reports whether tok looks like a money amount.
func IsCurrencyLike(tok string) bool {
	return currencyLike.MatchString(strings.TrimSpace(tok))
}

// ClassifyLayout decides the column order of one row from its own fields.
func ClassifyLayout(fields []string) Layout {
	if len(fields) > 2 && IsCurrencyLike(fields[2]) {
		return LayoutB
	}
	if len(fields) > 3 {
		if _, ok := normalize.LookupType(fields[3]); ok {
			return LayoutB
		}
	}
	return LayoutA
}

// ToCandidate maps fields to a candidate according to layout. fields must hold six entries.
func ToCandidate(fields []string, layout Layout, row int, source models.Source) models.Candidate {
	c := models.Candidate{
		Row:         row,
		Source:      source,
		Date:        fields[0],
		Description: fields[1],
		BankToken:   fields[4],
	}
	switch layout {
	case LayoutB:
		c.AmountToken = fields[2]
		c.TypeToken = fields[3]
		c.CategoryToken = fields[5]
	default:
		c.TypeToken = fields[2]
		c.CategoryToken = fields[3]
		c.AmountToken = fields[5]
	}
	return c
}
