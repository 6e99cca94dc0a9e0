// Package parser turns the text of a bank statement into transaction candidates.
package parser

import (
	"errors"
	"strings"
	"time"

	"github.com/insightdelivered/statement-ingest/internal/common"
	"github.com/insightdelivered/statement-ingest/internal/models"
)

// Grammar is a statement layout the pipeline knows how to read.
type Grammar interface {
	// Parse takes the text of each PDF page and returns the candidates it recognises.
	// It fails with common.ErrFormatUnrecognized when nothing matched.
	Parse(pages []string) (*models.Statement, error)
	// BankName returns the human-readable bank name.
	BankName() string
}

// New returns the grammar for bank. Banks without a dedicated grammar get the generic one.
func New(bank models.BankType, now func() time.Time) Grammar {
	if now == nil {
		now = time.Now
	}
	switch bank {
	case models.BankC6:
		return &C6BankGrammar{Now: now}
	default:
		return &GenericGrammar{Bank: bank, Now: now}
	}
}

// ParseStatement identifies the bank, runs its grammar and falls back to the
// generic grammar when the dedicated one finds nothing.
func ParseStatement(pages []string, now func() time.Time) (*models.Statement, error) {
	bank := Identify(strings.Join(pages, "\n"))
	bankEvent := models.Event{Kind: models.EventBank, Stage: "detect", Detail: string(bank)}
	if bank == models.BankUnknown {
		bankEvent.Detail = "unknown"
	}

	if now == nil {
		now = time.Now
	}
	g := New(bank, now)
	st, err := g.Parse(pages)
	if errors.Is(err, common.ErrFormatUnrecognized) {
		if _, generic := g.(*GenericGrammar); !generic {
			fallback := &GenericGrammar{Bank: bank, Now: now}
			if st, err = fallback.Parse(pages); err == nil {
				st.Events = append(st.Events, models.Event{
					Kind:   models.EventGrammar,
					Stage:  "parse",
					Detail: g.BankName() + " grammar found nothing, used generic",
				})
			}
		}
	}
	if err != nil {
		return nil, err
	}

	st.Events = append([]models.Event{bankEvent}, st.Events...)
	return st, nil
}
