package models

// EventKind tags a diagnostic event.
type EventKind string

const (
	EventHeader            EventKind = "header"
	EventMalformed         EventKind = "malformed"
	EventDelimiter         EventKind = "delimiter"
	EventLayout            EventKind = "layout"
	EventBank              EventKind = "bank"
	EventGrammar           EventKind = "grammar"
	EventAccepted          EventKind = "accepted"
	EventMissingDesc       EventKind = "skipped-missing-description"
	EventZeroAmount        EventKind = "skipped-zero-amount"
	EventOverLimit         EventKind = "skipped-over-limit"
	EventDuplicate         EventKind = "duplicate"
	EventDateDefaulted     EventKind = "date-defaulted"
	EventTypeDefaulted     EventKind = "type-defaulted"
	EventAmountAmbiguous   EventKind = "amount-ambiguous"
	EventAmountRejoined    EventKind = "amount-rejoined"
	EventRowFailure        EventKind = "row-failure"
	EventOutsideWindow     EventKind = "outside-window"
	EventStatementEmpty    EventKind = "statement-empty"
	EventPasswordRequested EventKind = "password-required"
)

// Event captures what the pipeline did with one line, row or file.
type Event struct {
	Row    int       `json:"row,omitempty" yaml:"row,omitempty"`
	Kind   EventKind `json:"kind" yaml:"kind"`
	Stage  string    `json:"stage" yaml:"stage"` // extract, detect, parse, normalize, validate, dedup
	Detail string    `json:"detail,omitempty" yaml:"detail,omitempty"`
	Text   string    `json:"text,omitempty" yaml:"text,omitempty"`
}

// Counts tallies row fates for one import.
type Counts struct {
	Success   int `json:"success" yaml:"success"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Duplicate int `json:"duplicate" yaml:"duplicate"`
	Error     int `json:"error" yaml:"error"`
}

// Anomalies counts values that were defaulted instead of rejected.
type Anomalies struct {
	DateDefaulted   int `json:"dateDefaulted" yaml:"dateDefaulted"`
	TypeDefaulted   int `json:"typeDefaulted" yaml:"typeDefaulted"`
	AmountAmbiguous int `json:"amountAmbiguous" yaml:"amountAmbiguous"`
}

// ImportResult is returned once per import invocation.
type ImportResult struct {
	RunID         string                  `json:"runId" yaml:"runId"`
	Source        Source                  `json:"source" yaml:"source"`
	Accepted      []NormalizedTransaction `json:"accepted" yaml:"accepted"`
	Counts        Counts                  `json:"counts" yaml:"counts"`
	Anomalies     Anomalies               `json:"anomalies" yaml:"anomalies"`
	Errors        []string                `json:"errors" yaml:"errors"`
	BankName      string                  `json:"bankName,omitempty" yaml:"bankName,omitempty"`
	NeedsPassword bool                    `json:"needsPassword" yaml:"needsPassword"`
	DryRun        bool                    `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
	Verdicts      []DuplicateVerdict      `json:"verdicts,omitempty" yaml:"verdicts,omitempty"`
	Events        []Event                 `json:"events,omitempty" yaml:"events,omitempty"`
}

// AddError appends msg unless the list already holds limit entries.
// A non-positive limit means unbounded.
func (r *ImportResult) AddError(msg string, limit int) {
	if limit > 0 && len(r.Errors) >= limit {
		return
	}
	r.Errors = append(r.Errors, msg)
}
