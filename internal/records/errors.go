package records

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrBatchTooLarge is matched by BatchSizeError via errors.Is.
var ErrBatchTooLarge = errors.New("batch exceeds store limit")

// ErrRecordNotFound is matched by NotFoundError via errors.Is.
var ErrRecordNotFound = errors.New("record not found")

// ErrAlreadySent is matched by AlreadySentError via errors.Is.
var ErrAlreadySent = errors.New("invitation already sent")

// BatchSizeError reports a create or delete call above MaxBatchSize.
type BatchSizeError struct {
	Size int
	Max  int
}

func (e *BatchSizeError) Error() string {
	return fmt.Sprintf("batch of %d records exceeds store limit of %d", e.Size, e.Max)
}

func (e *BatchSizeError) Is(target error) bool {
	return target == ErrBatchTooLarge
}

// NotFoundError reports an update against an unknown record.
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record not found: %s", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrRecordNotFound
}

// AlreadySentError reports a dispatch or update against a record that already has a
// mail sent time. The first sent time and TAT are kept.
type AlreadySentError struct {
	ID     uuid.UUID
	SentAt time.Time
}

func (e *AlreadySentError) Error() string {
	if e.SentAt.IsZero() {
		return fmt.Sprintf("invitation already sent for record %s", e.ID)
	}
	return fmt.Sprintf("invitation already sent for record %s at %s", e.ID, e.SentAt.UTC().Format(time.RFC3339))
}

func (e *AlreadySentError) Is(target error) bool {
	return target == ErrAlreadySent
}

// ValidationError reports a record rejected at the store boundary.
// Index is the position in the batch, or -1 for single-record calls.
type ValidationError struct {
	Index int
	Cause error
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid record at batch index %d: %v", e.Index, e.Cause)
	}
	return fmt.Sprintf("invalid record: %v", e.Cause)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
