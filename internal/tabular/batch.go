package tabular

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-ingest/internal/common"
	"github.com/insightdelivered/statement-ingest/internal/models"
	"github.com/insightdelivered/statement-ingest/internal/normalize"
)

// MinFields is the number of columns a transaction row must carry.
const MinFields = 6

// Batch is what a tabular parser hands to the pipeline.
type Batch struct {
	Source     models.Source
	Delimiter  Delimiter
	Candidates []models.Candidate
	Events     []models.Event
	Skipped    int                // malformed rows, never reached normalization
	Rejected   []*common.RowError // one per skipped row
}

func newBatch(source models.Source) *Batch {
	return &Batch{Source: source}
}

var headerFirstColumn = map[string]bool{"data": true, "date": true, "dt": true}
var headerSecondColumn = map[string]bool{"descricao": true, "description": true, "historico": true, "lancamento": true}

func isHeader(fields []string) bool {
	if len(fields) < 2 {
		return false
	}
	return headerFirstColumn[normalize.Fold(fields[0])] || headerSecondColumn[normalize.Fold(fields[1])]
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if f != "" {
			return false
		}
	}
	return true
}

// trimTrailingBlank drops empty cells spreadsheets and exports pad rows with.
func trimTrailingBlank(fields []string) []string {
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

var (
	// integer part of a decimal-comma amount cut by a comma delimiter: 46, 1.234, R$ 46
	amountIntPart = regexp.MustCompile(`^[-+]?\s*(?:R\$\s*)?[-+]?\s*(?:\d{1,3}(?:\.\d{3})+|\d+)$`)
	amountCents   = regexp.MustCompile(`^\d{1,2}-?$`)
)

// rejoinSplitAmount repairs a seven-field row whose amount was split on its
// decimal comma, trying the amount position of each layout. It reports the
// index of the repaired amount.
func rejoinSplitAmount(fields []string) ([]string, int, bool) {
	if len(fields) != MinFields+1 {
		return nil, 0, false
	}
	for _, at := range []int{5, 2} {
		if amountIntPart.MatchString(fields[at]) && amountCents.MatchString(fields[at+1]) {
			out := make([]string, 0, MinFields)
			out = append(out, fields[:at]...)
			out = append(out, fields[at]+","+fields[at+1])
			out = append(out, fields[at+2:]...)
			return out, at, true
		}
	}
	return nil, 0, false
}

// reject skips a row, keeping a malformed event and its row error.
func (b *Batch) reject(row int, kind error, text, format string, args ...any) {
	rerr := common.NewRowError(row, kind, format, args...)
	b.Skipped++
	b.Rejected = append(b.Rejected, rerr)
	b.Events = append(b.Events, models.Event{
		Row:    row,
		Kind:   models.EventMalformed,
		Stage:  "parse",
		Detail: rerr.Reason,
		Text:   text,
	})
}

// addRecord classifies one cleaned row. via names the delimiter for diagnostics.
func (b *Batch) addRecord(row int, fields []string, text, via string) {
	fields = trimTrailingBlank(fields)
	if isBlank(fields) {
		return
	}

	if isHeader(fields) {
		b.Events = append(b.Events, models.Event{Row: row, Kind: models.EventHeader, Stage: "parse", Text: text})
		return
	}

	if len(fields) < MinFields {
		b.reject(row, common.ErrMissingFields, text, "%d fields, need %d", len(fields), MinFields)
		return
	}

	if len(fields) > MinFields {
		fixed, at, ok := rejoinSplitAmount(fields)
		if !ok {
			b.reject(row, common.ErrExtraFields, text, "%d fields, expected %d", len(fields), MinFields)
			return
		}
		fields = fixed
		b.Events = append(b.Events, models.Event{
			Row:    row,
			Kind:   models.EventAmountRejoined,
			Stage:  "parse",
			Detail: fmt.Sprintf("amount split on its decimal comma, read as %q", fields[at]),
			Text:   text,
		})
	}

	layout := ClassifyLayout(fields)
	detail := layout.String()
	if via != "" {
		detail += " via " + via
	}
	b.Events = append(b.Events, models.Event{Row: row, Kind: models.EventLayout, Stage: "detect", Detail: detail})
	b.Candidates = append(b.Candidates, ToCandidate(fields, layout, row, b.Source))
}

// Lines splits text on any newline convention.
func Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
