package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/insightdelivered/statement-ingest/internal/models"
)

// Fold lowercases s and strips diacritics ("Saída" → "saida").
func Fold(s string) string {
	// Transformers keep state, so each call builds its own chain.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

var typeSynonyms = map[string]models.TxType{
	"saida":   models.TypeSaida,
	"despesa": models.TypeSaida,
	"debito":  models.TypeSaida,
	"gasto":   models.TypeSaida,
	"expense": models.TypeSaida,
	"out":     models.TypeSaida,

	"entrada": models.TypeEntrada,
	"receita": models.TypeEntrada,
	"credito": models.TypeEntrada,
	"income":  models.TypeEntrada,
	"in":      models.TypeEntrada,

	"transferencia": models.TypeTransferencia,
	"transfer":      models.TypeTransferencia,
}

// LookupType resolves a type synonym, ignoring case and accents.
func LookupType(raw string) (models.TxType, bool) {
	t, ok := typeSynonyms[Fold(strings.TrimSpace(raw))]
	return t, ok
}

// NormalizeType maps raw to a TxType. Unknown tokens become Entrada and report false.
func NormalizeType(raw string) (models.TxType, bool) {
	if t, ok := LookupType(raw); ok {
		return t, true
	}
	return models.TypeEntrada, false
}
