package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-ingest/internal/common"
)

// ParseAmount reads a currency token in Brazilian or US notation.
// The sign is dropped: direction comes from the transaction type.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := cleanAmount(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", common.ErrAmountInvalid)
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return decimal.Zero, fmt.Errorf("%w: %q", common.ErrAmountInvalid, raw)
		}
	}

	canonical, err := canonicalAmount(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", err, raw)
	}

	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", common.ErrAmountInvalid, raw)
	}
	return d.Abs(), nil
}

// NormalizeAmount is ParseAmount with failures mapped to zero.
func NormalizeAmount(raw string) decimal.Decimal {
	d, err := ParseAmount(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// cleanAmount strips currency symbols, whitespace and sign markers.
func cleanAmount(raw string) string {
	s := strings.ReplaceAll(raw, "R$", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = s[1 : len(s)-1]
	}
	s = strings.TrimLeft(s, "+-")
	s = strings.TrimRight(s, "+-")
	return s
}

// canonicalAmount rewrites s (digits and separators only) as "1234.56".
func canonicalAmount(s string) (string, error) {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// 1.234,56
		if strings.Count(s, ",") == 1 && lastComma > lastDot && len(s)-lastComma-1 <= 2 {
			return joinDecimal(strings.ReplaceAll(s[:lastComma], ".", ""), s[lastComma+1:]), nil
		}
		// 1,234.56
		if strings.Count(s, ".") == 1 && lastDot > lastComma && len(s)-lastDot-1 <= 2 {
			return joinDecimal(strings.ReplaceAll(s[:lastDot], ",", ""), s[lastDot+1:]), nil
		}
		return "", common.ErrAmountAmbiguous

	case lastComma >= 0:
		tail := s[lastComma+1:]
		if len(tail) <= 2 {
			return joinDecimal(strings.ReplaceAll(s[:lastComma], ",", ""), tail), nil
		}
		return strings.ReplaceAll(s, ",", ""), nil

	case lastDot >= 0:
		tail := s[lastDot+1:]
		if len(tail) <= 2 {
			return joinDecimal(strings.ReplaceAll(s[:lastDot], ".", ""), tail), nil
		}
		return strings.ReplaceAll(s, ".", ""), nil
	}

	return s, nil
}

func joinDecimal(intPart, frac string) string {
	if intPart == "" {
		intPart = "0"
	}
	if frac == "" {
		return intPart
	}
	return intPart + "." + frac
}
