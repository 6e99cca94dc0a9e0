package tabular

import (
	"strings"

	"github.com/insightdelivered/statement-ingest/internal/models"
)

// ParsePaste reads freeform pasted rows. Delimiter and column order are
// detected per line, so a paste may mix formats.
func ParsePaste(text string) *Batch {
	b := newBatch(models.SourcePaste)

	for i, line := range Lines(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		d := DetectPasteDelimiter(line)
		b.addRecord(i+1, Split(line, d), line, d.String())
	}

	return b
}
