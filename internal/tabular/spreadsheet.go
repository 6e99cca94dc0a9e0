package tabular

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/statement-ingest/internal/common"
	"github.com/insightdelivered/statement-ingest/internal/models"
)

// maxXLSRows bounds how much of a legacy workbook is read.
const maxXLSRows = 10000

// ParseXLSX reads the first sheet of an Office Open XML workbook.
func ParseXLSX(data []byte) (*Batch, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: opening xlsx: %v", common.ErrExtractionFailure, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", common.ErrExtractionFailure)
	}

	// Raw values keep dates as serial numbers instead of a locale-dependent rendering.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet %q: %v", common.ErrExtractionFailure, sheets[0], err)
	}

	b := newBatch(models.SourceXLSX)
	for i, row := range rows {
		fields := cleanFields(row)
		fixSpreadsheetCells(fields, serialDate)
		b.addRecord(i+1, fields, strings.Join(row, " | "), sheets[0])
	}
	return b, nil
}

// ParseXLS reads every sheet of a legacy BIFF workbook, one after another.
func ParseXLS(data []byte) (b *Batch, err error) {
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = fmt.Errorf("%w: xls reader crashed: %v", common.ErrExtractionFailure, r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "cp1252")
	if err != nil {
		return nil, fmt.Errorf("%w: opening xls: %v", common.ErrExtractionFailure, err)
	}
	if wb == nil {
		return nil, fmt.Errorf("%w: no workbook stream in file", common.ErrExtractionFailure)
	}

	rows := wb.ReadAllCells(maxXLSRows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data found in sheet", common.ErrExtractionFailure)
	}

	b = newBatch(models.SourceXLS)
	for i, row := range rows {
		fields := cleanFields(row)
		fixSpreadsheetCells(fields, serialDate)
		b.addRecord(i+1, fields, strings.Join(row, " | "), "xls")
	}
	return b, nil
}

// serialDate renders an Excel serial day number in the 1900 date system.
func serialDate(serial float64) (string, bool) {
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", false
	}
	return models.DateOf(t).String(), true
}

var floatArtifact = regexp.MustCompile(`^-?\d+\.\d{3,}$`)

// fixSpreadsheetCells rewrites machine-formatted cells so the text normalizers
// read them: a serial or RFC 3339 date in the first column becomes ISO, and
// float artifacts in the two possible amount columns are rounded to cents.
func fixSpreadsheetCells(fields []string, serialToDate func(float64) (string, bool)) {
	if len(fields) == 0 {
		return
	}

	if t, err := time.Parse(time.RFC3339, fields[0]); err == nil {
		fields[0] = models.DateOf(t).String()
	} else if serialToDate != nil {
		if v, err := strconv.ParseFloat(fields[0], 64); err == nil && v > 0 && v < 100000 {
			if iso, ok := serialToDate(v); ok {
				fields[0] = iso
			}
		}
	}

	for _, col := range []int{2, 5} {
		if col >= len(fields) || !floatArtifact.MatchString(fields[col]) {
			continue
		}
		if d, err := decimal.NewFromString(fields[col]); err == nil {
			fields[col] = d.StringFixed(2)
		}
	}
}
