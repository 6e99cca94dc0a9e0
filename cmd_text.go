package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-ingest/internal/extractor"
	"github.com/insightdelivered/statement-ingest/internal/parser"
)

// newTextCmd prints what the grammars see: the identified bank and the text
// layer of every page.
func newTextCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "text <file.pdf>",
		Short: "Print the text layer of a PDF statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := extractor.ExtractFile(args[0], password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			bank := parser.Identify(strings.Join(pages, "\n"))
			name := parser.DisplayName(bank)
			if name == "" {
				name = "unknown"
			}
			fmt.Fprintf(out, "%s %s\n", headerStyle.Render("bank:"), name)
			for i, page := range pages {
				fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("--- page %d ---", i+1)))
				fmt.Fprintln(out, page)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password for encrypted PDF statements")
	return cmd
}

