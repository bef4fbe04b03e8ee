package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-dispatch/internal/ingestion"
	"github.com/jonathan/interview-dispatch/internal/observability"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import candidate rows from a CSV export as master records",
	Long: `Reads a CSV with the columns "Candidate Name", "Email", "Role", "Interview Rounds",
"Calendly HR", "Calendly Tech", "Calendly Hiring Manager" and "Added On" and creates one unsplit master record per row.
Nothing is written unless every row is valid.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "Path to CSV file")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(importFile)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summary, err := ingestion.ImportCSV(ctx, f, store, ingestion.Options{BatchSize: cfg.BatchSize})
	if err != nil {
		return err
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintImportSummary(summary)
	return nil
}
