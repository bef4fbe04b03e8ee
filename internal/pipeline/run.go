// Package pipeline provides the high-level orchestration of a split-then-dispatch run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/interview-dispatch/internal/dispatch"
	"github.com/jonathan/interview-dispatch/internal/mailer"
	"github.com/jonathan/interview-dispatch/internal/observability"
	"github.com/jonathan/interview-dispatch/internal/records"
	"github.com/jonathan/interview-dispatch/internal/splitter"
)

// Step names reported in progress events.
const (
	StepSplit    = "split"
	StepDispatch = "dispatch"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	Store  records.Client
	Sender mailer.Sender

	Split     splitter.Options
	Dispatch  dispatch.Options
	Scheduler dispatch.SchedulerOptions

	// SkipSplit runs only the dispatch step; SkipDispatch runs only the split step.
	SkipSplit    bool
	SkipDispatch bool

	Verbose    bool
	Out        io.Writer // step and verbose output; defaults to os.Stdout
	OnProgress ProgressCallback
}

// Result collects the outcome of each step that ran.
type Result struct {
	Split    *splitter.Summary     `json:"split,omitempty"`
	Dispatch *dispatch.BatchSummary `json:"dispatch,omitempty"`
}

// emitProgress calls the progress callback if configured
func emitProgress(opts *RunOptions, step, message string, content any) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{
			Step:    step,
			Message: message,
			Content: content,
		})
	}
}

// Run splits pending masters and then dispatches every pending round record.
// A split failure stops the run before any email is sent. Per-record dispatch failures
// do not fail the run; they are reported in Result.Dispatch.
func Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("pipeline requires a record store")
	}
	if !opts.SkipDispatch && opts.Sender == nil {
		return nil, fmt.Errorf("pipeline requires an email sender to dispatch")
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	printer := observability.NewPrinter(out)
	result := &Result{}

	if !opts.SkipSplit {
		_, _ = fmt.Fprintf(out, "Step 1/2: Splitting master records...\n")
		summary, err := splitter.New(opts.Store, opts.Split).Run(ctx)
		result.Split = summary
		if err != nil {
			return result, fmt.Errorf("split failed: %w", err)
		}
		if opts.Verbose {
			printer.PrintSplitSummary(summary)
		}
		emitProgress(&opts, StepSplit,
			fmt.Sprintf("Created %d round records from %d masters", summary.Created, summary.Selected), summary)
	}

	if opts.SkipDispatch {
		return result, nil
	}

	_, _ = fmt.Fprintf(out, "Step 2/2: Dispatching pending invitations...\n")
	dispatcher := dispatch.New(opts.Sender, opts.Store, opts.Dispatch)
	batch, err := dispatch.NewScheduler(opts.Store, dispatcher, opts.Scheduler).RunPending(ctx)
	result.Dispatch = batch
	if err != nil {
		return result, fmt.Errorf("dispatch failed: %w", err)
	}
	if opts.Verbose {
		printer.PrintBatchSummary(batch)
	}
	emitProgress(&opts, StepDispatch,
		fmt.Sprintf("Sent %d of %d pending invitations", batch.Sent, batch.Pending), batch)

	return result, nil
}
