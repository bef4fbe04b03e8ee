package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonathan/interview-dispatch/internal/records"
	"github.com/jonathan/interview-dispatch/internal/types"
)

const timeFormat = time.RFC3339Nano

// SQLite is a file-backed record store for local runs and tests.
type SQLite struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// OpenSQLite opens (creating if needed) a SQLite database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", filepath.Clean(path))
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// One writer at a time keeps batch transactions from tripping SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	s := &SQLite{sqlDB: sqlDB, now: time.Now}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// EnsureSchema creates the interviews table if it does not exist.
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *SQLite) Query(ctx context.Context, q records.Query) ([]types.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM interviews WHERE 1=1`
	args := []any{}

	if q.ID != uuid.Nil {
		query += " AND id = ?"
		args = append(args, q.ID.String())
	}
	if q.Status != "" {
		query += " AND split_status = ?"
		args = append(args, string(q.Status))
	}
	if q.PendingOnly {
		query += " AND mail_sent_time IS NULL"
	}
	if q.Email != "" {
		query += " AND email = ?"
		args = append(args, q.Email)
	}

	query += " ORDER BY seq ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []types.Record
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return out, nil
}

func scanSQLiteRecord(rows *sql.Rows) (types.Record, error) {
	var (
		rec                types.Record
		id, status         string
		addedOn, createdAt string
		mailSent           sql.NullString
		tatHours           sql.NullFloat64
	)
	if err := rows.Scan(&id, &rec.CandidateName, &rec.Email, &rec.Role, &rec.RoundsRaw,
		&rec.Links.HR, &rec.Links.Tech, &rec.Links.HiringManager, &addedOn,
		&rec.RoundName, &rec.ResolvedLink, &status, &mailSent, &tatHours, &createdAt); err != nil {
		return rec, fmt.Errorf("failed to scan record: %w", err)
	}

	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return rec, fmt.Errorf("invalid record id %q: %w", id, err)
	}
	if rec.AddedOn, err = time.Parse(timeFormat, addedOn); err != nil {
		return rec, fmt.Errorf("invalid added_on for %s: %w", id, err)
	}
	if rec.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return rec, fmt.Errorf("invalid created_at for %s: %w", id, err)
	}
	if mailSent.Valid {
		sent, err := time.Parse(timeFormat, mailSent.String)
		if err != nil {
			return rec, fmt.Errorf("invalid mail_sent_time for %s: %w", id, err)
		}
		rec.MailSentTime = &sent
	}
	if tatHours.Valid {
		hours := tatHours.Float64
		rec.TATHours = &hours
	}
	rec.Status = types.SplitStatus(status)
	return rec, nil
}

// CreateRecords inserts one batch inside a single transaction.
func (s *SQLite) CreateRecords(ctx context.Context, batch []types.RecordInput) ([]uuid.UUID, error) {
	prepared, err := records.PrepareBatch(batch)
	if err != nil {
		return nil, err
	}
	if len(prepared) == 0 {
		return nil, nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO interviews (`+insertColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	createdAt := s.now().UTC().Format(timeFormat)
	ids := make([]uuid.UUID, len(prepared))
	for i, in := range prepared {
		if _, err := stmt.ExecContext(ctx,
			in.ID.String(), in.CandidateName, in.Email, in.Role, in.RoundsRaw,
			in.Links.HR, in.Links.Tech, in.Links.HiringManager, in.AddedOn.UTC().Format(timeFormat),
			in.RoundName, in.ResolvedLink, string(in.Status), createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to insert record: %w", err)
		}
		ids[i] = in.ID
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit records: %w", err)
	}
	return ids, nil
}

// DeleteRecords deletes one batch of records in a single statement.
func (s *SQLite) DeleteRecords(ctx context.Context, ids []uuid.UUID) error {
	if err := records.CheckDeleteBatch(ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}
	query := `DELETE FROM interviews WHERE id IN (` + strings.Join(placeholders, ", ") + `)`
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	return nil
}

// UpdateRecord writes the mail sent time and TAT of one record in a single statement.
func (s *SQLite) UpdateRecord(ctx context.Context, id uuid.UUID, update types.RecordUpdate) error {
	if err := records.CheckUpdate(update); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE interviews SET mail_sent_time = ?, tat_hours = ? WHERE id = ? AND mail_sent_time IS NULL`,
		update.MailSentTime.UTC().Format(timeFormat), *update.TATHours, id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Nothing updated: the record is either missing or already sent.
	var sentAt sql.NullString
	err = s.sqlDB.QueryRowContext(ctx, `SELECT mail_sent_time FROM interviews WHERE id = ?`, id.String()).Scan(&sentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &records.NotFoundError{ID: id}
	}
	if err != nil {
		return fmt.Errorf("failed to check record state: %w", err)
	}
	if !sentAt.Valid {
		return fmt.Errorf("record %s was not updated", id)
	}
	sent, _ := time.Parse(timeFormat, sentAt.String)
	return &records.AlreadySentError{ID: id, SentAt: sent}
}
