package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/insightdelivered/statement-ingest/internal/common"
	"github.com/insightdelivered/statement-ingest/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a delimited export. The delimiter is sniffed from the first
// non-blank line; every row is then classified on its own.
func ParseCSV(r io.Reader) (*Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading csv: %v", common.ErrExtractionFailure, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	b := newBatch(models.SourceCSV)
	b.Delimiter = DetectDelimiter(firstLine(string(data)))
	b.Events = append(b.Events, models.Event{
		Kind:   models.EventDelimiter,
		Stage:  "detect",
		Detail: b.Delimiter.String(),
	})

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = rune(b.Delimiter)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				b.reject(perr.StartLine, common.ErrMalformedRow, "", "%v", perr.Err)
				continue
			}
			return nil, fmt.Errorf("%w: reading csv: %v", common.ErrExtractionFailure, err)
		}

		line, _ := cr.FieldPos(0)
		b.addRecord(line, cleanFields(record), strings.Join(record, string(cr.Comma)), "")
	}

	return b, nil
}

func firstLine(text string) string {
	for _, line := range Lines(text) {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
