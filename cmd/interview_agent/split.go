package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-dispatch/internal/observability"
	"github.com/jonathan/interview-dispatch/internal/splitter"
)

var (
	splitDryRun              bool
	splitDeleteUnprocessable bool
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Explode master records into one record per interview round",
	Long: `Selects every unsplit master record, creates one round record per round named in its
"Interview Rounds" field (skipping rounds the candidate already has), then deletes the masters.
All creations finish before the first deletion.`,
	RunE: runSplit,
}

func init() {
	splitCmd.Flags().BoolVar(&splitDryRun, "dry-run", false, "Print the plan without writing anything")
	splitCmd.Flags().BoolVar(&splitDeleteUnprocessable, "delete-unprocessable", false, "Also delete masters whose rounds field names no round")
	rootCmd.AddCommand(splitCmd)
}

func runSplit(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("delete-unprocessable") {
		cfg.DeleteUnprocessable = splitDeleteUnprocessable
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	s := splitter.New(store, splitOptions(cfg))
	printer := observability.NewPrinter(cmd.OutOrStdout())

	if splitDryRun {
		plan, err := s.Preview(ctx)
		if err != nil {
			return err
		}
		printer.PrintSplitPlan(plan)
		return nil
	}

	summary, err := s.Run(ctx)
	printer.PrintSplitSummary(summary)
	if err != nil {
		return fmt.Errorf("split failed: %w", err)
	}
	return nil
}
