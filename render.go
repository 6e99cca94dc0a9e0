package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/insightdelivered/statement-ingest/internal/models"
	"github.com/insightdelivered/statement-ingest/internal/writer"
)

type renderFunc func(out io.Writer, res *models.ImportResult, verbose bool) error

var renderers = map[string]renderFunc{
	"table": renderTable,
	"yaml":  renderYAML,
	"json":  renderJSON,
	"csv":   renderCSV,
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func renderTable(out io.Writer, res *models.ImportResult, verbose bool) error {
	var b strings.Builder

	b.WriteString(summaryLine(res))
	b.WriteString("\n")

	if len(res.Accepted) > 0 {
		rows := make([][]string, 0, len(res.Accepted))
		for _, tx := range res.Accepted {
			rows = append(rows, []string{
				tx.Date.String(),
				tx.Description,
				string(tx.Type),
				tx.Bank,
				tx.Amount.StringFixed(2),
			})
		}
		b.WriteString(newTable([]string{"Date", "Description", "Type", "Bank", "Amount"}, rows, 4))
		b.WriteString("\n")
	}

	for _, msg := range res.Errors {
		b.WriteString(errorStyle.Render("  ✗ " + msg))
		b.WriteString("\n")
	}

	if verbose && len(res.Events) > 0 {
		rows := make([][]string, 0, len(res.Events))
		for _, ev := range res.Events {
			row := ""
			if ev.Row > 0 {
				row = strconv.Itoa(ev.Row)
			}
			rows = append(rows, []string{row, ev.Stage, string(ev.Kind), ev.Detail})
		}
		b.WriteString(newTable([]string{"Row", "Stage", "Event", "Detail"}, rows, -1))
		b.WriteString("\n")
	}

	_, err := io.WriteString(out, b.String())
	return err
}

func summaryLine(res *models.ImportResult) string {
	verb := "imported"
	if res.DryRun {
		verb = "would import"
	}
	parts := []string{
		successStyle.Render(fmt.Sprintf("%d %s", res.Counts.Success, verb)),
		fmt.Sprintf("%d duplicate", res.Counts.Duplicate),
		fmt.Sprintf("%d skipped", res.Counts.Skipped),
	}
	if res.Counts.Error > 0 {
		parts = append(parts, errorStyle.Render(fmt.Sprintf("%d failed", res.Counts.Error)))
	}

	line := strings.Join(parts, dimStyle.Render(" · "))
	if res.BankName != "" {
		line = dimStyle.Render(res.BankName+": ") + line
	}
	return line
}

// newTable renders a rounded table; rightCol, when not negative, is right aligned.
func newTable(headers []string, rows [][]string, rightCol int) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == rightCol {
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		}).
		String()
}

// trimmed drops the event trace unless verbose output was asked for.
func trimmed(res *models.ImportResult, verbose bool) *models.ImportResult {
	if verbose {
		return res
	}
	cp := *res
	cp.Events = nil
	return &cp
}

func renderYAML(out io.Writer, res *models.ImportResult, verbose bool) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(trimmed(res, verbose)); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

func renderJSON(out io.Writer, res *models.ImportResult, verbose bool) error {
	data, err := json.MarshalIndent(trimmed(res, verbose), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func renderCSV(out io.Writer, res *models.ImportResult, _ bool) error {
	w := &writer.CSVWriter{IncludeHeader: true}
	return w.Write(out, res.Accepted)
}
