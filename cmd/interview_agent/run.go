package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-dispatch/internal/pipeline"
)

var (
	runSkipSplit    bool
	runSkipDispatch bool
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Split master records, then dispatch every pending invitation",
	Long: `Runs the whole flow end-to-end: split -> dispatch-pending.

A split failure stops the run before any email is sent.`,
	RunE: runPipelineCmd,
}

func init() {
	runCommand.Flags().BoolVar(&runSkipSplit, "skip-split", false, "Only dispatch pending records")
	runCommand.Flags().BoolVar(&runSkipDispatch, "skip-dispatch", false, "Only split master records")
	runCommand.MarkFlagsMutuallyExclusive("skip-split", "skip-dispatch")
	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := pipeline.RunOptions{
		Split:        splitOptions(cfg),
		Dispatch:     dispatchOptions(cfg),
		Scheduler:    schedulerOptions(cfg),
		SkipSplit:    runSkipSplit,
		SkipDispatch: runSkipDispatch,
		Verbose:      cfg.Verbose,
		Out:          cmd.OutOrStdout(),
	}
	if !runSkipDispatch {
		sender, err := newSender(cfg)
		if err != nil {
			return err
		}
		opts.Sender = sender
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	opts.Store = store

	result, err := pipeline.Run(ctx, opts)
	if err != nil {
		return err
	}

	if d := result.Dispatch; d != nil {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Sent %d of %d pending invitations\n", d.Sent, d.Pending)
		if d.Failed > 0 {
			return fmt.Errorf("%d dispatches failed", d.Failed)
		}
	}
	return nil
}
