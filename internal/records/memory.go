package records

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/interview-dispatch/internal/types"
)

// Calls counts the store calls a MemoryStore has served.
type Calls struct {
	CreateSizes []int
	DeleteSizes []int
	Updates     int
	Queries     int
}

// MemoryStore is an in-process Client. It backs dry runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	order   []uuid.UUID
	records map[uuid.UUID]types.Record
	calls   Calls
	now     func() time.Time

	// Failure hooks; a non-nil hook returning an error aborts the call before any change.
	CreateHook func(batch []types.RecordInput) error
	DeleteHook func(ids []uuid.UUID) error
	UpdateHook func(id uuid.UUID, update types.RecordUpdate) error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]types.Record),
		now:     time.Now,
	}
}

// Query returns matching records in insertion order.
func (m *MemoryStore) Query(ctx context.Context, q Query) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls.Queries++
	var out []types.Record
	for _, id := range m.order {
		rec := m.records[id]
		if !q.Matches(&rec) {
			continue
		}
		out = append(out, copyRecord(rec))
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// CreateRecords inserts a batch of at most MaxBatchSize records.
func (m *MemoryStore) CreateRecords(ctx context.Context, batch []types.RecordInput) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prepared, err := PrepareBatch(batch)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateHook != nil {
		if err := m.CreateHook(batch); err != nil {
			return nil, err
		}
	}
	m.calls.CreateSizes = append(m.calls.CreateSizes, len(batch))

	ids := make([]uuid.UUID, 0, len(prepared))
	for _, in := range prepared {
		m.records[in.ID] = types.Record{
			ID:            in.ID,
			CandidateName: in.CandidateName,
			Email:         in.Email,
			Role:          in.Role,
			RoundsRaw:     in.RoundsRaw,
			Links:         in.Links,
			AddedOn:       in.AddedOn,
			RoundName:     in.RoundName,
			ResolvedLink:  in.ResolvedLink,
			Status:        in.Status,
			CreatedAt:     m.now(),
		}
		m.order = append(m.order, in.ID)
		ids = append(ids, in.ID)
	}
	return ids, nil
}

// DeleteRecords removes a batch of at most MaxBatchSize records. Unknown ids are ignored.
func (m *MemoryStore) DeleteRecords(ctx context.Context, ids []uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := CheckDeleteBatch(ids); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteHook != nil {
		if err := m.DeleteHook(ids); err != nil {
			return err
		}
	}
	m.calls.DeleteSizes = append(m.calls.DeleteSizes, len(ids))

	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
		delete(m.records, id)
	}
	kept := m.order[:0]
	for _, id := range m.order {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	m.order = kept
	return nil
}

// UpdateRecord writes the sent time and TAT of one record in a single step.
func (m *MemoryStore) UpdateRecord(ctx context.Context, id uuid.UUID, update types.RecordUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := CheckUpdate(update); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateHook != nil {
		if err := m.UpdateHook(id, update); err != nil {
			return err
		}
	}
	rec, ok := m.records[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if rec.MailSentTime != nil {
		return &AlreadySentError{ID: id, SentAt: *rec.MailSentTime}
	}
	m.calls.Updates++

	sent := *update.MailSentTime
	hours := *update.TATHours
	rec.MailSentTime = &sent
	rec.TATHours = &hours
	m.records[id] = rec
	return nil
}

// Get returns a copy of one record.
func (m *MemoryStore) Get(id uuid.UUID) (types.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return copyRecord(rec), ok
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Calls returns a snapshot of the call counters.
func (m *MemoryStore) Calls() Calls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Calls{
		CreateSizes: append([]int(nil), m.calls.CreateSizes...),
		DeleteSizes: append([]int(nil), m.calls.DeleteSizes...),
		Updates:     m.calls.Updates,
		Queries:     m.calls.Queries,
	}
}

// ResetCalls clears the call counters, typically after seeding.
func (m *MemoryStore) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = Calls{}
}

func copyRecord(rec types.Record) types.Record {
	if rec.MailSentTime != nil {
		sent := *rec.MailSentTime
		rec.MailSentTime = &sent
	}
	if rec.TATHours != nil {
		hours := *rec.TATHours
		rec.TATHours = &hours
	}
	return rec
}
