package records

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/interview-dispatch/internal/types"
)

// Chunk splits items into consecutive slices of at most size elements.
// size values outside (0, MaxBatchSize] are clamped to MaxBatchSize.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || size > MaxBatchSize {
		size = MaxBatchSize
	}
	var chunks [][]T
	for len(items) > 0 {
		n := min(size, len(items))
		chunks = append(chunks, items[:n])
		items = items[n:]
	}
	return chunks
}

// CreateInBatches submits inputs in sequential batches until the buffer drains.
// Batches committed before a failure stay committed; their IDs are returned with the error.
func CreateInBatches(ctx context.Context, c Client, inputs []types.RecordInput, size int) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for i, batch := range Chunk(inputs, size) {
		created, err := c.CreateRecords(ctx, batch)
		if err != nil {
			return ids, fmt.Errorf("failed to create batch %d (%d records): %w", i+1, len(batch), err)
		}
		ids = append(ids, created...)
	}
	return ids, nil
}

// DeleteInBatches deletes ids in sequential batches. It returns the number of records
// deleted before any failure.
func DeleteInBatches(ctx context.Context, c Client, ids []uuid.UUID, size int) (int, error) {
	deleted := 0
	for i, batch := range Chunk(ids, size) {
		if err := c.DeleteRecords(ctx, batch); err != nil {
			return deleted, fmt.Errorf("failed to delete batch %d (%d records): %w", i+1, len(batch), err)
		}
		deleted += len(batch)
	}
	return deleted, nil
}
