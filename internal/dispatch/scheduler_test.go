package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-dispatch/internal/mailer"
	"github.com/jonathan/interview-dispatch/internal/records"
	"github.com/jonathan/interview-dispatch/internal/types"
)

func TestRunPending_NothingPending(t *testing.T) {
	store := records.NewMemoryStore()
	sender := &fakeSender{}
	s := NewScheduler(store, New(sender, store, Options{Logger: quiet}), SchedulerOptions{Logger: quiet})

	summary, err := s.RunPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Pending)
	assert.Zero(t, sender.sent())
}

func TestRunPending_DispatchesAllAndCollectsFailures(t *testing.T) {
	store := records.NewMemoryStore()
	for i := 0; i < 5; i++ {
		seedRound(t, store, fmt.Sprintf("c%d@example.com", i), "HR", "https://calendly.com/acme/hr")
	}
	// A master must never be picked up.
	_, err := store.CreateRecords(context.Background(), []types.RecordInput{{
		CandidateName: "Master", Email: "m@example.com", Role: "PM", RoundsRaw: "HR", AddedOn: addedOn, Status: types.SplitStatusUnsplit,
	}})
	require.NoError(t, err)

	sender := &fakeSender{byEmail: map[string]error{
		"c2@example.com": &mailer.APIError{StatusCode: 422, Body: "invalid recipient"},
	}}
	s := NewScheduler(store, New(sender, store, Options{Logger: quiet}), SchedulerOptions{Concurrency: 3, Logger: quiet})

	summary, err := s.RunPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Pending)
	assert.Equal(t, 4, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "c2@example.com", summary.Failures[0].Email)
	assert.Equal(t, 1, summary.Failures[0].Attempts, "422 is not retried")
	assert.Error(t, summary.Err())

	pending, err := store.Query(context.Background(), records.Query{Status: types.SplitStatusSplit, PendingOnly: true})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c2@example.com", pending[0].Email)

	// A second pass only retries what is still pending.
	sender.byEmail = nil
	summary, err = s.RunPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 1, summary.Sent)
	assert.NoError(t, summary.Err())
}

func TestRunPending_RetriesRetryableSendFailures(t *testing.T) {
	store := records.NewMemoryStore()
	seedRound(t, store, "ada@example.com", "Tech", "")

	sender := &fakeSender{errs: []error{
		&mailer.APIError{StatusCode: 503, Body: "unavailable"},
		&mailer.APIError{StatusCode: 429, Body: "slow down"},
	}}
	s := NewScheduler(store, New(sender, store, Options{Logger: quiet}), SchedulerOptions{
		Retry:  RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond},
		Logger: quiet,
	})

	summary, err := s.RunPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 3, sender.sent())
}

func TestRunPending_GivesUpAfterMaxAttempts(t *testing.T) {
	store := records.NewMemoryStore()
	seedRound(t, store, "ada@example.com", "Tech", "")

	unavailable := &mailer.APIError{StatusCode: 503, Body: "unavailable"}
	sender := &fakeSender{byEmail: map[string]error{"ada@example.com": unavailable}}
	s := NewScheduler(store, New(sender, store, Options{Logger: quiet}), SchedulerOptions{
		Retry:  RetryPolicy{MaxAttempts: 2},
		Logger: quiet,
	})

	summary, err := s.RunPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Failures[0].Attempts)
	assert.ErrorIs(t, summary.Err(), unavailable)
}

func TestRunPending_NeverRetriesStoreFailure(t *testing.T) {
	store := records.NewMemoryStore()
	seedRound(t, store, "ada@example.com", "Tech", "")
	store.UpdateHook = func(_ uuid.UUID, _ types.RecordUpdate) error { return errors.New("write failed") }

	sender := &fakeSender{}
	s := NewScheduler(store, New(sender, store, Options{Logger: quiet}), SchedulerOptions{
		Retry:  RetryPolicy{MaxAttempts: 5},
		Logger: quiet,
	})

	summary, err := s.RunPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, sender.sent(), "an accepted email is never re-sent")
}

func TestRunPending_QueryFailure(t *testing.T) {
	s := NewScheduler(failingStore{}, New(&fakeSender{}, records.NewMemoryStore(), Options{Logger: quiet}), SchedulerOptions{Logger: quiet})

	_, err := s.RunPending(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query pending records")
}

func TestRunPending_Limit(t *testing.T) {
	store := records.NewMemoryStore()
	for i := 0; i < 3; i++ {
		seedRound(t, store, fmt.Sprintf("c%d@example.com", i), "HR", "")
	}
	sender := &fakeSender{}
	s := NewScheduler(store, New(sender, store, Options{Logger: quiet}), SchedulerOptions{Limit: 2, Logger: quiet})

	summary, err := s.RunPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 2, sender.sent())
}

type failingStore struct{ records.Client }

func (failingStore) Query(context.Context, records.Query) ([]types.Record, error) {
	return nil, errors.New("connection refused")
}
