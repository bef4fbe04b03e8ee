package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/interview-dispatch/internal/mailer"
	"github.com/jonathan/interview-dispatch/internal/records"
	"github.com/jonathan/interview-dispatch/internal/types"
)

// DefaultConcurrency bounds parallel dispatches when none is configured.
const DefaultConcurrency = 4

// RetryPolicy controls re-sending after a rejected or failed send.
// Only sends the email service did not accept are retried; a store write failing after an
// accepted send is never retried, since that would mail the candidate twice.
type RetryPolicy struct {
	MaxAttempts int           // total attempts; values below 1 mean 1
	Backoff     time.Duration // wait before the second attempt, doubled after each retry
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	Concurrency int
	Retry       RetryPolicy
	// Limit caps how many pending records one run picks up; 0 means all.
	Limit  int
	Logger *log.Logger
}

// Failure is one record whose dispatch did not complete.
type Failure struct {
	RecordID  uuid.UUID `json:"record_id"`
	Email     string    `json:"email"`
	RoundName string    `json:"round_name"`
	Attempts  int       `json:"attempts"`
	Err       error     `json:"-"`
	Message   string    `json:"error"`
}

// BatchSummary reports one RunPending pass.
type BatchSummary struct {
	Pending  int                    `json:"pending"`
	Sent     int                    `json:"sent"`
	Failed   int                    `json:"failed"`
	Results  []types.DispatchResult `json:"results,omitempty"`
	Failures []Failure              `json:"failures,omitempty"`
}

// Err joins the per-record failures, or returns nil when every dispatch succeeded.
func (b *BatchSummary) Err() error {
	errs := make([]error, 0, len(b.Failures))
	for _, f := range b.Failures {
		errs = append(errs, fmt.Errorf("record %s: %w", f.RecordID, f.Err))
	}
	return errors.Join(errs...)
}

// Scheduler finds pending round records and dispatches them with bounded concurrency.
type Scheduler struct {
	store      records.Client
	dispatcher *Dispatcher
	opts       SchedulerOptions
	logger     *log.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(store records.Client, dispatcher *Dispatcher, opts SchedulerOptions) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{store: store, dispatcher: dispatcher, opts: opts, logger: logger}
}

type outcome struct {
	result   *types.DispatchResult
	err      error
	attempts int
}

// RunPending dispatches every split record without a mail sent time. A failing record does
// not stop the others; failures are reported in the summary and stay pending.
func (s *Scheduler) RunPending(ctx context.Context) (*BatchSummary, error) {
	pending, err := s.store.Query(ctx, records.Query{
		Status:      types.SplitStatusSplit,
		PendingOnly: true,
		Limit:       s.opts.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query pending records: %w", err)
	}

	summary := &BatchSummary{Pending: len(pending)}
	if len(pending) == 0 {
		s.logger.Printf("No records to process.")
		return summary, nil
	}

	outcomes := make([]outcome, len(pending))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i := range pending {
		trigger := pending[i].Trigger()
		g.Go(func() error {
			res, attempts, err := s.dispatchWithRetry(ctx, trigger)
			outcomes[i] = outcome{result: res, err: err, attempts: attempts}
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range outcomes {
		if o.err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{
				RecordID:  pending[i].ID,
				Email:     pending[i].Email,
				RoundName: pending[i].RoundName,
				Attempts:  o.attempts,
				Err:       o.err,
				Message:   o.err.Error(),
			})
			continue
		}
		summary.Sent++
		summary.Results = append(summary.Results, *o.result)
	}

	s.logger.Printf("Dispatch complete. pending=%d sent=%d failed=%d", summary.Pending, summary.Sent, summary.Failed)
	return summary, ctx.Err()
}

func (s *Scheduler) dispatchWithRetry(ctx context.Context, t types.Trigger) (*types.DispatchResult, int, error) {
	backoff := s.opts.Retry.Backoff
	for attempt := 1; ; attempt++ {
		res, err := s.dispatcher.Dispatch(ctx, t)
		if err == nil {
			return res, attempt, nil
		}
		if attempt >= s.opts.Retry.MaxAttempts || !mailer.IsRetryable(err) || ctx.Err() != nil {
			return nil, attempt, err
		}

		s.logger.Printf("Retrying record %s after attempt %d: %v", t.RecordID, attempt, err)
		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, attempt, err
			case <-timer.C:
			}
			backoff *= 2
		}
	}
}
