package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-dispatch/internal/records"
	"github.com/jonathan/interview-dispatch/internal/types"
)

var addedOn = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "interviews.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func master(email, rounds string) types.RecordInput {
	return types.RecordInput{
		CandidateName: "Ada Lovelace",
		Email:         email,
		Role:          "Backend Engineer",
		RoundsRaw:     rounds,
		Links:         types.Links{HR: "https://calendly.com/acme/hr", Tech: "https://calendly.com/acme/tech"},
		AddedOn:       addedOn,
		Status:        types.SplitStatusUnsplit,
	}
}

func round(email, name, link string) types.RecordInput {
	in := master(email, name)
	in.RoundName = name
	in.ResolvedLink = link
	in.Status = types.SplitStatusSplit
	return in
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, err := Open(context.Background(), "mysql://localhost/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database URL scheme")

	_, err = Open(context.Background(), "")
	assert.Error(t, err)
}

func TestOpen_SQLiteURL(t *testing.T) {
	store, err := Open(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*SQLite)
	assert.True(t, ok)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "  ")
	assert.Error(t, err)
}

func TestSQLite_CreateAndQuery(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	ids, err := s.CreateRecords(ctx, []types.RecordInput{
		master("ada@example.com", "HR, Tech"),
		round("bob@example.com", "HR", "https://calendly.com/acme/hr"),
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	all, err := s.Query(ctx, records.Query{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ids[0], all[0].ID)
	assert.Equal(t, "HR, Tech", all[0].RoundsRaw)
	assert.Equal(t, "https://calendly.com/acme/tech", all[0].Links.Tech)
	assert.True(t, addedOn.Equal(all[0].AddedOn))
	assert.True(t, all[0].IsMaster())
	assert.Nil(t, all[0].MailSentTime)
	assert.Nil(t, all[0].TATHours)

	split, err := s.Query(ctx, records.Query{Status: types.SplitStatusSplit})
	require.NoError(t, err)
	require.Len(t, split, 1)
	assert.Equal(t, "HR", split[0].RoundName)
	assert.Equal(t, "https://calendly.com/acme/hr", split[0].ResolvedLink)

	byEmail, err := s.Query(ctx, records.Query{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Len(t, byEmail, 1)
}

func TestSQLite_QueryLimit(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	batch := make([]types.RecordInput, 5)
	for i := range batch {
		batch[i] = round(fmt.Sprintf("c%d@example.com", i), "HR", "")
	}
	_, err := s.CreateRecords(ctx, batch)
	require.NoError(t, err)

	got, err := s.Query(ctx, records.Query{Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c0@example.com", got[0].Email)
}

func TestSQLite_CreateRejectsOversizedBatch(t *testing.T) {
	s := openTestSQLite(t)

	batch := make([]types.RecordInput, records.MaxBatchSize+1)
	for i := range batch {
		batch[i] = master(fmt.Sprintf("c%d@example.com", i), "HR")
	}
	_, err := s.CreateRecords(context.Background(), batch)
	assert.ErrorIs(t, err, records.ErrBatchTooLarge)

	all, err := s.Query(context.Background(), records.Query{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLite_CreateIsAllOrNothing(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	dup := uuid.New()
	first := round("ada@example.com", "HR", "")
	first.ID = dup
	second := round("ada@example.com", "Tech", "")
	second.ID = dup

	_, err := s.CreateRecords(ctx, []types.RecordInput{first, second})
	require.Error(t, err)

	all, err := s.Query(ctx, records.Query{})
	require.NoError(t, err)
	assert.Empty(t, all, "failed batch leaves no partial rows")
}

func TestSQLite_CreateValidatesInput(t *testing.T) {
	s := openTestSQLite(t)

	bad := round("not-an-email", "HR", "")
	_, err := s.CreateRecords(context.Background(), []types.RecordInput{master("ok@example.com", "HR"), bad})

	var verr *records.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 1, verr.Index)
}

func TestSQLite_DeleteRecords(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	ids, err := s.CreateRecords(ctx, []types.RecordInput{
		master("a@example.com", "HR"),
		master("b@example.com", "HR"),
		master("c@example.com", "HR"),
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteRecords(ctx, ids[:2]))
	require.NoError(t, s.DeleteRecords(ctx, nil))

	left, err := s.Query(ctx, records.Query{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, ids[2], left[0].ID)

	assert.ErrorIs(t, s.DeleteRecords(ctx, make([]uuid.UUID, records.MaxBatchSize+1)), records.ErrBatchTooLarge)
}

func TestSQLite_UpdateRecord(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	ids, err := s.CreateRecords(ctx, []types.RecordInput{round("ada@example.com", "HR", "")})
	require.NoError(t, err)

	result := types.DispatchResult{RecordID: ids[0], MailSentTime: addedOn.Add(3 * time.Hour), TATHours: 3}
	require.NoError(t, s.UpdateRecord(ctx, ids[0], result.Update()))

	pending, err := s.Query(ctx, records.Query{Status: types.SplitStatusSplit, PendingOnly: true})
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := s.Query(ctx, records.Query{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].MailSentTime)
	assert.True(t, result.MailSentTime.Equal(*all[0].MailSentTime))
	assert.Equal(t, 3.0, *all[0].TATHours)
	assert.Equal(t, types.DispatchStateSent, all[0].DispatchState())
}

func TestSQLite_UpdateRecordKeepsFirstSend(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	ids, err := s.CreateRecords(ctx, []types.RecordInput{round("ada@example.com", "HR", "")})
	require.NoError(t, err)

	first := types.DispatchResult{RecordID: ids[0], MailSentTime: addedOn.Add(time.Hour), TATHours: 1}
	require.NoError(t, s.UpdateRecord(ctx, ids[0], first.Update()))

	second := types.DispatchResult{RecordID: ids[0], MailSentTime: addedOn.Add(5 * time.Hour), TATHours: 5}
	err = s.UpdateRecord(ctx, ids[0], second.Update())
	require.ErrorIs(t, err, records.ErrAlreadySent)
	var sentErr *records.AlreadySentError
	require.ErrorAs(t, err, &sentErr)
	assert.True(t, first.MailSentTime.Equal(sentErr.SentAt))

	got, err := s.Query(ctx, records.Query{ID: ids[0]})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, first.MailSentTime.Equal(*got[0].MailSentTime))
	assert.Equal(t, 1.0, *got[0].TATHours)
}

func TestSQLite_QueryByID(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	ids, err := s.CreateRecords(ctx, []types.RecordInput{
		round("ada@example.com", "HR", ""),
		round("bob@example.com", "Tech", ""),
	})
	require.NoError(t, err)

	got, err := s.Query(ctx, records.Query{ID: ids[1]})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bob@example.com", got[0].Email)

	none, err := s.Query(ctx, records.Query{ID: uuid.New()})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_UpdateRecordErrors(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	sent := addedOn
	hours := 1.0
	err := s.UpdateRecord(ctx, uuid.New(), types.RecordUpdate{MailSentTime: &sent, TATHours: &hours})
	assert.ErrorIs(t, err, records.ErrRecordNotFound)

	err = s.UpdateRecord(ctx, uuid.New(), types.RecordUpdate{MailSentTime: &sent})
	var verr *records.ValidationError
	assert.True(t, errors.As(err, &verr), "tat without sent time is rejected")
}

func TestSQLite_SatisfiesStore(t *testing.T) {
	var _ Store = openTestSQLite(t)
	var _ Store = (*DB)(nil)
}

func TestSQLite_WorksWithBatchHelpers(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	inputs := make([]types.RecordInput, 120)
	for i := range inputs {
		inputs[i] = master(fmt.Sprintf("c%d@example.com", i), "HR")
	}
	ids, err := records.CreateInBatches(ctx, s, inputs, 0)
	require.NoError(t, err)
	assert.Len(t, ids, 120)

	deleted, err := records.DeleteInBatches(ctx, s, ids, 0)
	require.NoError(t, err)
	assert.Equal(t, 120, deleted)
}
