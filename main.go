package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-ingest/internal/common"
	"github.com/insightdelivered/statement-ingest/internal/config"
	"github.com/insightdelivered/statement-ingest/internal/pipeline"
	"github.com/insightdelivered/statement-ingest/internal/storage"
)

var version = "dev"

// app is what every subcommand needs once flags and config are resolved.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		a       = &app{}
	)

	root := &cobra.Command{
		Use:   "statement-ingest",
		Short: "Import bank statements, spreadsheets and pasted rows into one transaction ledger",
		Long: `statement-ingest reads bank PDF statements (including password-protected ones),
CSV/XLSX/XLS exports and pasted rows, normalizes them into canonical transactions
and drops the ones that were already imported.

Examples:
  statement-ingest import extrato-maio.pdf --password 1234
  statement-ingest import planilha.xlsx lancamentos.csv --dry-run
  pbpaste | statement-ingest import --paste --format yaml
  statement-ingest serve --addr :8080 --db ingest.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = common.NewLogger(cfg.Log.Level, "ingest")
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./statement-ingest.yaml or ~/.config/statement-ingest/statement-ingest.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("db", "", "SQLite database path (records stay in memory when empty)")
	root.PersistentFlags().Int("threshold", 80, "minimum description similarity (0-100) for a duplicate")
	root.PersistentFlags().Int("lookback", 90, "days of stored records checked for duplicates")
	root.PersistentFlags().Int("workers", 4, "rows normalized concurrently")

	root.AddCommand(newImportCmd(a), newServeCmd(a), newTextCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// config is irrelevant here
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "statement-ingest %s\n", version)
		},
	}
}

// openStore returns the configured store and a function that releases it.
func (a *app) openStore() (pipeline.Store, func(), error) {
	if a.cfg.Database.Path == "" {
		a.logger.Warn("no database configured, records are kept in memory only")
		return storage.NewMemoryStore(), func() {}, nil
	}

	gs, err := storage.OpenGormStore(a.cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Debug("database opened", "path", a.cfg.Database.Path)
	return gs, func() {
		if err := gs.Close(); err != nil {
			a.logger.Error("closing database", "err", err)
		}
	}, nil
}

func (a *app) newPipeline(store pipeline.Store, opts ...pipeline.Option) *pipeline.Pipeline {
	base := []pipeline.Option{
		pipeline.WithSimilarityThreshold(a.cfg.Dedup.SimilarityThreshold),
		pipeline.WithLookbackDays(a.cfg.Dedup.LookbackDays),
		pipeline.WithMaxAmount(a.cfg.MaxAmountDecimal()),
		pipeline.WithWorkers(a.cfg.Pipeline.Workers),
		pipeline.WithMaxErrors(a.cfg.Pipeline.MaxErrors),
	}
	return pipeline.New(store, a.logger, append(base, opts...)...)
}
