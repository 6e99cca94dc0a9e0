package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/insightdelivered/statement-ingest/internal/common"
	"github.com/insightdelivered/statement-ingest/internal/extractor"
	"github.com/insightdelivered/statement-ingest/internal/models"
	"github.com/insightdelivered/statement-ingest/internal/parser"
	"github.com/insightdelivered/statement-ingest/internal/tabular"
)

var sourceByExt = map[string]models.Source{
	".pdf":  models.SourcePDF,
	".csv":  models.SourceCSV,
	".xlsx": models.SourceXLSX,
	".xls":  models.SourceXLS,
	".txt":  models.SourcePaste,
	".tsv":  models.SourcePaste,
}

// DetectSource maps a file name to its source kind by extension.
func DetectSource(filename string) (models.Source, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if src, ok := sourceByExt[ext]; ok {
		return src, nil
	}
	return "", common.NewUserError(
		fmt.Sprintf("unsupported file type %q: use .pdf, .csv, .xlsx, .xls or .txt", ext),
		common.ErrUnsupportedSource,
	)
}

func (r Request) source() (models.Source, error) {
	switch {
	case r.Source != "":
		if _, known := sourceNames[r.Source]; !known {
			return "", fmt.Errorf("%w: %q", common.ErrUnsupportedSource, r.Source)
		}
		return r.Source, nil
	case r.Filename != "":
		return DetectSource(r.Filename)
	case r.Text != "":
		return models.SourcePaste, nil
	default:
		return "", common.NewUserError("nothing to import: provide a file or pasted text", common.ErrUnsupportedSource)
	}
}

var sourceNames = map[models.Source]struct{}{
	models.SourcePDF: {}, models.SourceCSV: {}, models.SourceXLSX: {},
	models.SourceXLS: {}, models.SourcePaste: {},
}

// extracted is the source-specific front half of an import.
type extracted struct {
	candidates    []models.Candidate
	events        []models.Event
	skipped       int
	rejected      []*common.RowError
	bankName      string
	needsPassword bool
	passwordMsg   string
	empty         bool
}

func (p *Pipeline) extract(src models.Source, req Request) (*extracted, error) {
	switch src {
	case models.SourcePDF:
		return p.extractPDF(req)
	case models.SourcePaste:
		text := req.Text
		if text == "" {
			text = string(req.Data)
		}
		return fromBatch(tabular.ParsePaste(text))
	}

	if len(req.Data) == 0 {
		return nil, fmt.Errorf("%w: empty %s file", common.ErrExtractionFailure, src)
	}

	var (
		batch *tabular.Batch
		err   error
	)
	switch src {
	case models.SourceCSV:
		batch, err = tabular.ParseCSV(bytes.NewReader(req.Data))
	case models.SourceXLSX:
		batch, err = tabular.ParseXLSX(req.Data)
	case models.SourceXLS:
		batch, err = tabular.ParseXLS(req.Data)
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedSource, src)
	}
	if err != nil {
		return nil, err
	}
	return fromBatch(batch)
}

func fromBatch(b *tabular.Batch) (*extracted, error) {
	if len(b.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no transaction rows found (%d malformed)", common.ErrFormatUnrecognized, b.Skipped)
	}
	return &extracted{candidates: b.Candidates, events: b.Events, skipped: b.Skipped, rejected: b.Rejected}, nil
}

func (p *Pipeline) extractPDF(req Request) (*extracted, error) {
	pages, err := extractor.Extract(req.Data, req.Password)
	if errors.Is(err, common.ErrPasswordRequired) {
		return &extracted{
			needsPassword: true,
			passwordMsg:   common.UserMessage(err),
			events: []models.Event{{
				Kind: models.EventPasswordRequested, Stage: "extract", Detail: common.UserMessage(err),
			}},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	st, err := parser.ParseStatement(pages, p.now)
	if err != nil {
		return nil, err
	}
	return &extracted{
		candidates: st.Candidates,
		events:     st.Events,
		bankName:   st.BankName,
		empty:      st.Empty,
	}, nil
}
