package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-ingest/internal/models"
	"github.com/insightdelivered/statement-ingest/internal/pipeline"
	"github.com/insightdelivered/statement-ingest/internal/writer"
)

type importOptions struct {
	paste    bool
	password string
	userID   string
	dryRun   bool
	format   string
	verbose  bool
	output   string
}

func newImportCmd(a *app) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import statements, spreadsheets or pasted rows",
		Long: `Import one or more files (.pdf, .csv, .xlsx, .xls, .txt), or pasted rows read
from stdin with --paste. Rows already stored are reported as duplicates and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.paste && len(args) == 0 {
				return fmt.Errorf("nothing to import: pass at least one file or --paste")
			}
			if _, ok := renderers[opts.format]; !ok {
				return fmt.Errorf("unknown format %q: use table, yaml, json or csv", opts.format)
			}
			return runImport(cmd, a, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.paste, "paste", false, "read pasted rows from stdin")
	cmd.Flags().StringVarP(&opts.password, "password", "p", "", "password for encrypted PDF statements")
	cmd.Flags().StringVarP(&opts.userID, "user", "u", "default", "user the records belong to")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "show what would be imported without saving")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format: table, yaml, json, csv")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "include the per-row event trace")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "also write the accepted rows of every input to this CSV file")

	return cmd
}

func runImport(cmd *cobra.Command, a *app, opts *importOptions, files []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	p := a.newPipeline(store, pipeline.WithDryRun(opts.dryRun))
	render := renderers[opts.format]

	var requests []pipeline.Request
	if opts.paste {
		text, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		requests = append(requests, pipeline.Request{Text: string(text)})
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		requests = append(requests, pipeline.Request{Filename: path, Data: data, Password: opts.password})
	}

	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	var accepted []models.NormalizedTransaction
	for _, req := range requests {
		req.UserID = opts.userID
		name := req.Filename
		if name == "" {
			name = "stdin"
		}

		res, err := p.Import(ctx, req)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if res.NeedsPassword {
			fmt.Fprintln(cmd.ErrOrStderr(), warn.Render(fmt.Sprintf("%s: %s, rerun with --password", name, res.Errors[0])))
			continue
		}

		if opts.format == "table" {
			fmt.Fprintln(out, lipgloss.NewStyle().Bold(true).Render(name))
		}
		if err := render(out, res, opts.verbose); err != nil {
			return err
		}
		accepted = append(accepted, res.Accepted...)
	}

	if opts.output != "" {
		w := &writer.CSVWriter{IncludeHeader: true}
		if err := w.WriteToFile(opts.output, accepted); err != nil {
			return err
		}
		a.logger.Info("csv written", "path", opts.output, "rows", len(accepted))
	}
	return nil
}
