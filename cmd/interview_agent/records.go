package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-dispatch/internal/observability"
	"github.com/jonathan/interview-dispatch/internal/records"
	"github.com/jonathan/interview-dispatch/internal/types"
)

var (
	recordsStatus  string
	recordsPending bool
	recordsEmail   string
	recordsLimit   int
	recordsJSON    bool
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List interview records",
	RunE:  runRecords,
}

func init() {
	recordsCmd.Flags().StringVar(&recordsStatus, "status", "", "Filter by split status: unsplit or split")
	recordsCmd.Flags().BoolVar(&recordsPending, "pending", false, "Only records without a sent time")
	recordsCmd.Flags().StringVar(&recordsEmail, "email", "", "Filter by candidate email")
	recordsCmd.Flags().IntVar(&recordsLimit, "limit", 0, "Maximum records to list (0 = all)")
	recordsCmd.Flags().BoolVar(&recordsJSON, "json", false, "Print records as JSON")
	rootCmd.AddCommand(recordsCmd)
}

func runRecords(cmd *cobra.Command, _ []string) error {
	status := types.SplitStatus(recordsStatus)
	switch status {
	case "", types.SplitStatusUnsplit, types.SplitStatusSplit:
	default:
		return fmt.Errorf("invalid --status %q: must be unsplit or split", recordsStatus)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	recs, err := store.Query(ctx, records.Query{
		Status:      status,
		PendingOnly: recordsPending,
		Email:       recordsEmail,
		Limit:       recordsLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	if recordsJSON {
		if recs == nil {
			recs = []types.Record{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintRecords(recs)
	return nil
}
