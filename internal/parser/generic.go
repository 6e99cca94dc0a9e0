package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/insightdelivered/statement-ingest/internal/models"
	"github.com/insightdelivered/statement-ingest/internal/normalize"
)

// GenericGrammar is the best-effort fallback for banks without a dedicated
// grammar. It reads one transaction per line:
//
//	DATE [DATE] DESCRIPTION AMOUNT [BALANCE]
//
// Dates may omit the year; amounts must carry two decimals.
type GenericGrammar struct {
	Bank models.BankType
	Now  func() time.Time
}

func (g *GenericGrammar) BankName() string {
	if name := DisplayName(g.Bank); name != "" {
		return name
	}
	return "Generic"
}

var (
	genericTwoDates = regexp.MustCompile(
		`^(` + dateToken + `)\s+(` + dateToken + `)\s+(.+?)\s+(` + amountToken + `)(?:\s+(` + amountToken + `))?$`,
	)
	genericOneDate = regexp.MustCompile(
		`^(` + dateToken + `)\s+(.+?)\s+(` + amountToken + `)(?:\s+(` + amountToken + `))?$`,
	)
)

func (g *GenericGrammar) Parse(pages []string) (*models.Statement, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	text := normalizeText(strings.Join(pages, "\n"))
	st := &models.Statement{
		Bank:     g.Bank,
		BankName: DisplayName(g.Bank),
		Year:     inferYear(text, now()),
	}

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if !startsWithDate(line) {
			continue
		}

		date, desc, amount, ok := matchGenericLine(line)
		if !ok {
			st.Events = append(st.Events, models.Event{
				Row: i + 1, Kind: models.EventGrammar, Stage: "parse",
				Detail: "dated line did not match", Text: line,
			})
			continue
		}
		if isBalanceLine(desc) {
			st.Events = append(st.Events, models.Event{
				Row: i + 1, Kind: models.EventGrammar, Stage: "parse",
				Detail: "balance line", Text: line,
			})
			continue
		}

		st.Candidates = append(st.Candidates, models.Candidate{
			Row:         i + 1,
			Source:      models.SourcePDF,
			Date:        withYear(date, st.Year),
			Description: desc,
			TypeToken:   directionToken(amount, desc),
			BankToken:   st.BankName,
			AmountToken: amount,
		})
	}

	if len(st.Candidates) == 0 {
		return emptyOrUnrecognized(st, text, g.BankName())
	}
	return st, nil
}

// matchGenericLine tries the two-date pattern before the one-date one so the
// settle date never leaks into the description.
func matchGenericLine(line string) (date, desc, amount string, ok bool) {
	if m := genericTwoDates.FindStringSubmatch(line); m != nil {
		return m[1], strings.TrimSpace(m[3]), strings.TrimSpace(m[4]), true
	}
	if m := genericOneDate.FindStringSubmatch(line); m != nil {
		return m[1], strings.TrimSpace(m[2]), strings.TrimSpace(m[3]), true
	}
	return "", "", "", false
}

func isBalanceLine(desc string) bool {
	return strings.HasPrefix(normalize.Fold(desc), "saldo")
}
