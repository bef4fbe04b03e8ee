package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-dispatch/internal/dispatch"
	"github.com/jonathan/interview-dispatch/internal/observability"
)

var (
	pendingConcurrency int
	pendingLimit       int
)

var dispatchPendingCmd = &cobra.Command{
	Use:   "dispatch-pending",
	Short: "Send invitations for every round record without a sent time",
	Long: `Finds every split record that has not been emailed yet and dispatches it, several at a time.
Rejected sends are retried up to max_attempts. The command fails if any record could not be dispatched;
those records stay pending for the next run.`,
	RunE: runDispatchPending,
}

func init() {
	dispatchPendingCmd.Flags().IntVar(&pendingConcurrency, "concurrency", 0, "Parallel dispatches (defaults to config)")
	dispatchPendingCmd.Flags().IntVar(&pendingLimit, "limit", 0, "Dispatch at most this many records (0 = all)")
	rootCmd.AddCommand(dispatchPendingCmd)
}

func runDispatchPending(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = pendingConcurrency
	}
	sender, err := newSender(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	opts := schedulerOptions(cfg)
	opts.Limit = pendingLimit
	dispatcher := dispatch.New(sender, store, dispatchOptions(cfg))

	summary, err := dispatch.NewScheduler(store, dispatcher, opts).RunPending(ctx)
	observability.NewPrinter(cmd.OutOrStdout()).PrintBatchSummary(summary)
	if err != nil {
		return fmt.Errorf("dispatch failed: %w", err)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d dispatches failed", summary.Failed, summary.Pending)
	}
	return nil
}
