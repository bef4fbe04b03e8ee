// Package records defines the record store client used by the splitter and the dispatcher,
// plus batching helpers and an in-memory store.
package records

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/interview-dispatch/internal/types"
)

// MaxBatchSize is the store-imposed limit on records per create or delete call.
const MaxBatchSize = 50

// Query filters records. Zero values match everything.
type Query struct {
	ID          uuid.UUID         // match only this record
	Status      types.SplitStatus // match only this split status
	PendingOnly bool              // match only records without a mail sent time
	Email       string            // match only this candidate email
	Limit       int               // 0 means no limit
}

// Matches reports whether the record satisfies the query filters (Limit is ignored).
func (q Query) Matches(rec *types.Record) bool {
	if q.ID != uuid.Nil && rec.ID != q.ID {
		return false
	}
	if q.Status != "" && rec.Status != q.Status {
		return false
	}
	if q.PendingOnly && rec.MailSentTime != nil {
		return false
	}
	if q.Email != "" && rec.Email != q.Email {
		return false
	}
	return true
}

// Client is read/write access to the interviews table.
// Every call is atomic: a batch is committed entirely or not at all.
type Client interface {
	Query(ctx context.Context, q Query) ([]types.Record, error)
	CreateRecords(ctx context.Context, batch []types.RecordInput) ([]uuid.UUID, error)
	DeleteRecords(ctx context.Context, ids []uuid.UUID) error
	// UpdateRecord writes a dispatch outcome. It only succeeds while the record is
	// pending; a sent record yields an *AlreadySentError and keeps its first values.
	UpdateRecord(ctx context.Context, id uuid.UUID, update types.RecordUpdate) error
}

// RoundStore is the slice of Client the dispatcher needs: a lookup before sending and
// the combined write after.
type RoundStore interface {
	Query(ctx context.Context, q Query) ([]types.Record, error)
	UpdateRecord(ctx context.Context, id uuid.UUID, update types.RecordUpdate) error
}

// Lookup returns the record with the given id, or a *NotFoundError.
func Lookup(ctx context.Context, store RoundStore, id uuid.UUID) (types.Record, error) {
	recs, err := store.Query(ctx, Query{ID: id, Limit: 1})
	if err != nil {
		return types.Record{}, err
	}
	if len(recs) == 0 {
		return types.Record{}, &NotFoundError{ID: id}
	}
	return recs[0], nil
}

// PrepareBatch validates a creation batch at the client boundary and assigns missing IDs.
// The returned slice is a copy; the caller's inputs are not modified.
func PrepareBatch(batch []types.RecordInput) ([]types.RecordInput, error) {
	if len(batch) > MaxBatchSize {
		return nil, &BatchSizeError{Size: len(batch), Max: MaxBatchSize}
	}
	prepared := make([]types.RecordInput, len(batch))
	for i, in := range batch {
		if err := in.Validate(); err != nil {
			return nil, &ValidationError{Index: i, Cause: err}
		}
		if in.ID == uuid.Nil {
			in.ID = uuid.New()
		}
		prepared[i] = in
	}
	return prepared, nil
}

// CheckDeleteBatch enforces the delete batch limit.
func CheckDeleteBatch(ids []uuid.UUID) error {
	if len(ids) > MaxBatchSize {
		return &BatchSizeError{Size: len(ids), Max: MaxBatchSize}
	}
	return nil
}

// CheckUpdate validates an update at the client boundary.
func CheckUpdate(update types.RecordUpdate) error {
	if err := update.Validate(); err != nil {
		return &ValidationError{Index: -1, Cause: err}
	}
	return nil
}
