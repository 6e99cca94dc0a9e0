package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/insightdelivered/statement-ingest/internal/normalize"
)

// Building blocks shared by the grammars.
const (
	// DD/MM, DD/MM/YY or DD/MM/YYYY
	dateToken = `\d{1,2}/\d{1,2}(?:/\d{4}|/\d{2})?`
	// DD/MM only
	shortDateToken = `\d{2}/\d{2}`
	// 1.234,56 or 1,234.56 with an optional sign and currency symbol
	amountToken = `[-+]?\s*(?:R\$\s*)?[-+]?\s*(?:(?:\d{1,3}(?:\.\d{3})+|\d+),\d{2}|(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2})-?`
)

var (
	startsWithDatePattern = regexp.MustCompile(`^` + dateToken + `\b`)

	// DD/MM/YYYY anywhere
	fullDatePattern = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/(\d{4})\b`)
	// "Período: 01/05/2025 a 31/05/2025", "Extrato de maio de 2025"
	periodYearPattern = regexp.MustCompile(`(?i)(?:per[ií]odo|extrato|refer[eê]ncia|compet[eê]ncia|m[eê]s)[^\n]*?\b((?:19|20)\d{2})\b`)
	anyYearPattern    = regexp.MustCompile(`\b(20\d{2})\b`)
)

// inferYear picks the statement year for rows that only carry DD/MM:
// a period header first, then any full date, then any 20xx token, then now.
func inferYear(text string, now time.Time) int {
	for _, re := range []*regexp.Regexp{periodYearPattern, fullDatePattern, anyYearPattern} {
		if m := re.FindStringSubmatch(text); m != nil {
			if y, err := strconv.Atoi(m[1]); err == nil {
				return y
			}
		}
	}
	return now.Year()
}

// withYear completes a DD/MM token with year; longer tokens pass through.
func withYear(token string, year int) string {
	if strings.Count(token, "/") >= 2 {
		return token
	}
	return fmt.Sprintf("%s/%04d", token, year)
}

// normalizeText unifies the whitespace variants PDF text layers produce.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, " ", " ")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func startsWithDate(line string) bool {
	return startsWithDatePattern.MatchString(strings.TrimSpace(line))
}

func isNegative(amount string) bool {
	s := strings.TrimSpace(amount)
	return strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") ||
		strings.Contains(s, "R$ -") || strings.Contains(s, "R$-")
}

var debitKeywords = []string{
	"pix enviado", "saida pix", "pagamento", "compra", "debito", "saque", "tarifa",
	"ted enviada", "doc enviado", "transferencia enviada", "boleto", "iof", "juros",
	"anuidade", "aplicacao",
}

// isDebitDescription reports whether text names money leaving the account.
func isDebitDescription(text string) bool {
	folded := normalize.Fold(text)
	for _, kw := range debitKeywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

// directionToken is the type token handed to the normalizer.
func directionToken(amount, label string) string {
	switch {
	case strings.HasPrefix(normalize.Fold(strings.TrimSpace(label)), "transferencia entre contas"):
		return "transferencia"
	case isNegative(amount), isDebitDescription(label):
		return "saida"
	default:
		return "entrada"
	}
}

var emptyStatementMarkers = []string{
	"nao ha lancamentos",
	"sem movimentacao",
	"nenhum lancamento",
	"nao houve movimentacao",
}

// isEmptyStatement reports whether the document declares it has no transactions.
func isEmptyStatement(text string) bool {
	folded := normalize.Fold(text)
	for _, m := range emptyStatementMarkers {
		if strings.Contains(folded, m) {
			return true
		}
	}
	return false
}
