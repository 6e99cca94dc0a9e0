package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/insightdelivered/statement-ingest/internal/common"
	"github.com/insightdelivered/statement-ingest/internal/models"
)

// C6BankGrammar reads C6 Bank checking account statements.
//
// Rows carry launch and settle dates without a year, a fixed transaction
// label, the counterparty and a signed amount:
//
//	02/05 02/05 Pix enviado Padaria Central -R$ 23,50
//	05/05 05/05 Pix recebido Fulano de Tal R$ 1.200,00
type C6BankGrammar struct {
	Now func() time.Time
}

func (g *C6BankGrammar) BankName() string {
	return DisplayName(models.BankC6)
}

var c6Labels = []string{
	`Pix enviado`, `Pix recebido`, `Entrada PIX`, `Sa[ií]da PIX`,
	`D[ée]bito de cart[ãa]o`, `Pagamento`, `Compra`, `Transfer[êe]ncia`,
	`TED enviada`, `TED recebida`, `Estorno`, `Tarifa`, `Boleto`, `Dep[óo]sito`,
	`Saque`, `Rendimento`, `Aplica[çc][ãa]o`, `Resgate`, `Outros`,
}

var c6TxnPattern = regexp.MustCompile(
	`(?i)^(` + shortDateToken + `)\s+(` + shortDateToken + `)\s+` +
		`(` + strings.Join(c6Labels, "|") + `)\s+(.+?)\s+` +
		`(-?\s*(?:R\$\s*)?-?\s*\d{1,3}(?:\.\d{3})*,\d{2})$`,
)

func (g *C6BankGrammar) Parse(pages []string) (*models.Statement, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	text := normalizeText(strings.Join(pages, "\n"))
	st := &models.Statement{
		Bank:     models.BankC6,
		BankName: g.BankName(),
		Year:     inferYear(text, now()),
	}

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		m := c6TxnPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		// m[2] is the settle date; the launch date is what the account shows.
		label, desc, amount := m[3], strings.TrimSpace(m[4]), m[5]
		direction := "entrada"
		if isNegative(amount) {
			direction = "saida"
		}
		st.Candidates = append(st.Candidates, models.Candidate{
			Row:             i + 1,
			Source:          models.SourcePDF,
			Date:            withYear(m[1], st.Year),
			Description:     desc,
			TypeToken:       direction,
			BankToken:       st.BankName,
			AmountToken:     amount,
			TransactionType: label,
		})
	}

	if len(st.Candidates) == 0 {
		return emptyOrUnrecognized(st, text, g.BankName())
	}
	return st, nil
}

// emptyOrUnrecognized settles a statement with no candidates: an explicit
// "no transactions" marker is a valid result, anything else is a format miss.
func emptyOrUnrecognized(st *models.Statement, text, grammar string) (*models.Statement, error) {
	if isEmptyStatement(text) {
		st.Empty = true
		st.Events = append(st.Events, models.Event{
			Kind:   models.EventStatementEmpty,
			Stage:  "parse",
			Detail: grammar + " statement declares no transactions",
		})
		return st, nil
	}
	return nil, fmt.Errorf("%w: %s grammar found no transactions", common.ErrFormatUnrecognized, grammar)
}
