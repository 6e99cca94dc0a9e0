// Package writer exports accepted transactions.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/insightdelivered/statement-ingest/internal/models"
)

// CSVWriter writes transactions as CSV.
type CSVWriter struct {
	IncludeHeader bool
	// Comma is the field separator; zero means ','. Brazilian spreadsheets expect ';'.
	Comma rune
}

type csvRow struct {
	Date            string `csv:"Date"`
	Description     string `csv:"Description"`
	Type            string `csv:"Type"`
	Category        string `csv:"Category"`
	Bank            string `csv:"Bank"`
	Amount          string `csv:"Amount"`
	TransactionType string `csv:"Transaction Type"`
}

// WriteToFile writes txs to a CSV file at path.
func (w *CSVWriter) WriteToFile(path string, txs []models.NormalizedTransaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, txs)
}

// Write writes txs in CSV format to out. Amounts always carry two decimals.
func (w *CSVWriter) Write(out io.Writer, txs []models.NormalizedTransaction) error {
	rows := make([]csvRow, len(txs))
	for i, tx := range txs {
		rows[i] = csvRow{
			Date:            tx.Date.String(),
			Description:     tx.Description,
			Type:            string(tx.Type),
			Category:        tx.Category,
			Bank:            tx.Bank,
			Amount:          tx.Amount.StringFixed(2),
			TransactionType: tx.TransactionType,
		}
	}

	cw := csv.NewWriter(out)
	if w.Comma != 0 {
		cw.Comma = w.Comma
	}
	safe := gocsv.NewSafeCSVWriter(cw)

	var err error
	if w.IncludeHeader {
		err = gocsv.MarshalCSV(rows, safe)
	} else {
		err = gocsv.MarshalCSVWithoutHeaders(rows, safe)
	}
	if err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
