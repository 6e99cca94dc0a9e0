package parser

import (
	"regexp"

	"github.com/insightdelivered/statement-ingest/internal/models"
)

// bankSignatures is checked in order; the first match wins. C6 comes first
// because its statements routinely name other banks in Pix descriptions.
var bankSignatures = []struct {
	bank    models.BankType
	pattern *regexp.Regexp
}{
	{models.BankC6, regexp.MustCompile(`(?i)\bC6\s*BANK\b`)},
	{models.BankNubank, regexp.MustCompile(`(?i)\bNu\s?bank\b|\bNu Pagamentos\b`)},
	{models.BankItau, regexp.MustCompile(`(?i)\bita[uú]`)},
	{models.BankInter, regexp.MustCompile(`(?i)\bbanco inter\b`)},
	{models.BankBancoDoBrasil, regexp.MustCompile(`(?i)\bbanco do brasil\b`)},
	{models.BankBradesco, regexp.MustCompile(`(?i)\bbradesco\b`)},
	{models.BankSantander, regexp.MustCompile(`(?i)\bsantander\b`)},
	{models.BankCaixa, regexp.MustCompile(`(?i)\bcaixa econ[oô]mica\b`)},
	{models.BankContaSimples, regexp.MustCompile(`(?i)\bconta\s*simples\b`)},
}

var bankNames = map[models.BankType]string{
	models.BankC6:            "C6 BANK",
	models.BankNubank:        "Nubank",
	models.BankItau:          "Itaú",
	models.BankInter:         "Banco Inter",
	models.BankBancoDoBrasil: "Banco do Brasil",
	models.BankBradesco:      "Bradesco",
	models.BankSantander:     "Santander",
	models.BankCaixa:         "Caixa Econômica Federal",
	models.BankContaSimples:  "CONTA SIMPLES",
}

// Identify returns the first institution whose signature appears in text,
// or models.BankUnknown.
func Identify(text string) models.BankType {
	for _, sig := range bankSignatures {
		if sig.pattern.MatchString(text) {
			return sig.bank
		}
	}
	return models.BankUnknown
}

// DisplayName is the human-readable name of bank, empty when unknown.
func DisplayName(bank models.BankType) string {
	return bankNames[bank]
}
