package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date layout used on every output surface.
const DateLayout = "2006-01-02"

// CalendarDate is a date without time of day, always UTC midnight.
type CalendarDate struct {
	time.Time
}

// NewDate builds a CalendarDate from its components.
func NewDate(year int, month time.Month, day int) CalendarDate {
	return CalendarDate{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) CalendarDate {
	return NewDate(t.Date())
}

func (d CalendarDate) String() string {
	return d.Format(DateLayout)
}

// Equal reports whether both dates name the same day.
func (d CalendarDate) Equal(other CalendarDate) bool {
	return d.Time.Equal(other.Time)
}

// Before reports whether d is an earlier day than other.
func (d CalendarDate) Before(other CalendarDate) bool {
	return d.Time.Before(other.Time)
}

func (d CalendarDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *CalendarDate) UnmarshalText(b []byte) error {
	t, err := time.Parse(DateLayout, string(b))
	if err != nil {
		return err
	}
	*d = DateOf(t)
	return nil
}

func (d CalendarDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *CalendarDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// TxType is the closed set of transaction directions.
type TxType string

const (
	TypeEntrada       TxType = "Entrada"
	TypeSaida         TxType = "Saida"
	TypeTransferencia TxType = "Transferencia"
)

// Source names where a candidate came from.
type Source string

const (
	SourcePDF   Source = "pdf"
	SourceCSV   Source = "csv"
	SourceXLSX  Source = "xlsx"
	SourceXLS   Source = "xls"
	SourcePaste Source = "paste"
)

// Candidate is an extracted but uninterpreted transaction tuple.
type Candidate struct {
	Row             int    `json:"row"`
	Source          Source `json:"source"`
	Date            string `json:"date"`
	Description     string `json:"description"`
	TypeToken       string `json:"typeToken"`
	CategoryToken   string `json:"categoryToken"`
	BankToken       string `json:"bankToken"`
	AmountToken     string `json:"amountToken"`
	TransactionType string `json:"transactionType,omitempty"` // bank-specific label, grammars only
}

// NormalizedTransaction is the canonical record produced by normalization.
type NormalizedTransaction struct {
	Row             int             `json:"row" yaml:"row"`
	Date            CalendarDate    `json:"date" yaml:"date"`
	Type            TxType          `json:"type" yaml:"type"`
	Amount          decimal.Decimal `json:"amount" yaml:"amount"`
	Description     string          `json:"description" yaml:"description"`
	Category        string          `json:"category" yaml:"category"`
	Bank            string          `json:"bank" yaml:"bank"`
	TransactionType string          `json:"transactionType,omitempty" yaml:"transactionType,omitempty"`
}

// ExistingRecord is a previously stored transaction returned by the store.
type ExistingRecord struct {
	ID          string
	Date        CalendarDate
	Type        TxType
	Amount      decimal.Decimal
	Description string
}

// DuplicateVerdict is the dedup decision for one normalized transaction.
type DuplicateVerdict struct {
	Candidate       NormalizedTransaction `json:"candidate" yaml:"candidate"`
	IsDuplicate     bool                  `json:"isDuplicate" yaml:"isDuplicate"`
	MatchedRecordID string                `json:"matchedRecordId,omitempty" yaml:"matchedRecordId,omitempty"`
	Similarity      int                   `json:"similarity" yaml:"similarity"`
	BestSimilarity  int                   `json:"bestSimilarity" yaml:"bestSimilarity"` // across the whole window
}

// BankType identifies an institution with a known statement signature.
type BankType string

const (
	BankUnknown       BankType = ""
	BankC6            BankType = "c6bank"
	BankNubank        BankType = "nubank"
	BankItau          BankType = "itau"
	BankBancoDoBrasil BankType = "bb"
	BankBradesco      BankType = "bradesco"
	BankSantander     BankType = "santander"
	BankCaixa         BankType = "caixa"
	BankInter         BankType = "inter"
	BankContaSimples  BankType = "contasimples"
)

// Statement holds what a grammar pulled out of a PDF text stream.
type Statement struct {
	Bank       BankType
	BankName   string
	Year       int
	Candidates []Candidate
	Events     []Event
	Empty      bool // document declares it has no transactions
}
