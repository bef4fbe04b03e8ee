// Package db provides PostgreSQL and SQLite implementations of the interview record store.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/interview-dispatch/internal/records"
	"github.com/jonathan/interview-dispatch/internal/types"
)

// Store is a records.Client backed by a database connection.
type Store interface {
	records.Client
	EnsureSchema(ctx context.Context) error
	Close() error
}

// Open connects to the store named by databaseURL: postgres:// or postgresql:// URLs use
// PostgreSQL, sqlite:<path> uses a local SQLite file.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	switch {
	case databaseURL == "":
		return nil, fmt.Errorf("database URL is empty")
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return Connect(ctx, databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite:"):
		return OpenSQLite(ctx, strings.TrimPrefix(databaseURL, "sqlite:"))
	default:
		return nil, fmt.Errorf("unsupported database URL scheme: %s", databaseURL)
	}
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// EnsureSchema creates the interviews table if it does not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Query retrieves interview records matching the filters, oldest first
func (db *DB) Query(ctx context.Context, q records.Query) ([]types.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM interviews WHERE 1=1`
	args := []any{}
	argNum := 1

	if q.ID != uuid.Nil {
		query += fmt.Sprintf(" AND id = $%d", argNum)
		args = append(args, q.ID)
		argNum++
	}
	if q.Status != "" {
		query += fmt.Sprintf(" AND split_status = $%d", argNum)
		args = append(args, string(q.Status))
		argNum++
	}
	if q.PendingOnly {
		query += " AND mail_sent_time IS NULL"
	}
	if q.Email != "" {
		query += fmt.Sprintf(" AND email = $%d", argNum)
		args = append(args, q.Email)
		argNum++
	}

	query += " ORDER BY created_at ASC, seq ASC"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, q.Limit)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []types.Record
	for rows.Next() {
		var rec types.Record
		var status string
		if err := rows.Scan(&rec.ID, &rec.CandidateName, &rec.Email, &rec.Role, &rec.RoundsRaw,
			&rec.Links.HR, &rec.Links.Tech, &rec.Links.HiringManager, &rec.AddedOn,
			&rec.RoundName, &rec.ResolvedLink, &status, &rec.MailSentTime, &rec.TATHours, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Status = types.SplitStatus(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return out, nil
}

// CreateRecords inserts one batch inside a single transaction
func (db *DB) CreateRecords(ctx context.Context, batch []types.RecordInput) ([]uuid.UUID, error) {
	prepared, err := records.PrepareBatch(batch)
	if err != nil {
		return nil, err
	}
	if len(prepared) == 0 {
		return nil, nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b := &pgx.Batch{}
	for _, in := range prepared {
		b.Queue(insertRecordSQL(1),
			in.ID, in.CandidateName, in.Email, in.Role, in.RoundsRaw,
			in.Links.HR, in.Links.Tech, in.Links.HiringManager, in.AddedOn,
			in.RoundName, in.ResolvedLink, string(in.Status),
		)
	}

	br := tx.SendBatch(ctx, b)
	for range prepared {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return nil, fmt.Errorf("failed to insert record: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("failed to insert records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit records: %w", err)
	}

	ids := make([]uuid.UUID, len(prepared))
	for i, in := range prepared {
		ids[i] = in.ID
	}
	return ids, nil
}

// DeleteRecords deletes one batch of records in a single statement
func (db *DB) DeleteRecords(ctx context.Context, ids []uuid.UUID) error {
	if err := records.CheckDeleteBatch(ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	if _, err := db.pool.Exec(ctx, `DELETE FROM interviews WHERE id = ANY($1::uuid[])`, strIDs); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	return nil
}

// UpdateRecord writes the mail sent time and TAT of one record in a single statement
func (db *DB) UpdateRecord(ctx context.Context, id uuid.UUID, update types.RecordUpdate) error {
	if err := records.CheckUpdate(update); err != nil {
		return err
	}

	result, err := db.pool.Exec(ctx,
		`UPDATE interviews SET mail_sent_time = $2, tat_hours = $3 WHERE id = $1 AND mail_sent_time IS NULL`,
		id, *update.MailSentTime, *update.TATHours,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	// Nothing updated: the record is either missing or already sent.
	var sentAt *time.Time
	err = db.pool.QueryRow(ctx, `SELECT mail_sent_time FROM interviews WHERE id = $1`, id).Scan(&sentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &records.NotFoundError{ID: id}
	}
	if err != nil {
		return fmt.Errorf("failed to check record state: %w", err)
	}
	if sentAt == nil {
		return fmt.Errorf("record %s was not updated", id)
	}
	return &records.AlreadySentError{ID: id, SentAt: *sentAt}
}
