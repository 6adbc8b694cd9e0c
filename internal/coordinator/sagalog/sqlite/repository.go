// Package sqlite stores the settlement saga log in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jcmexdev/pizzeria-storefront/internal/coordinator/sagalog"

	_ "modernc.org/sqlite"
)

// The table is append-only: one row per transition, current state is the
// newest row of a saga.
const schema = `
CREATE TABLE IF NOT EXISTS saga_logs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    saga_id         TEXT    NOT NULL,
    status          TEXT    NOT NULL,
    current_step    TEXT    NOT NULL DEFAULT '',
    payload         TEXT,
    error_messages  TEXT    NOT NULL DEFAULT '[]',
    trace_id        TEXT    NOT NULL DEFAULT '',
    span_id         TEXT    NOT NULL DEFAULT '',
    updated_at      TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_saga_logs_saga_id ON saga_logs(saga_id, id);
CREATE INDEX IF NOT EXISTS idx_saga_logs_trace_id ON saga_logs(trace_id);
`

// Repository is the SQLite implementation of sagalog.Repository and sagalog.Reader.
type Repository struct {
	db *sql.DB
}

var (
	_ sagalog.Repository = (*Repository)(nil)
	_ sagalog.Reader     = (*Repository)(nil)
)

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply saga log schema: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Save(ctx context.Context, entry *sagalog.SagaLog) error {
	const q = `
		INSERT INTO saga_logs
			(saga_id, status, current_step, payload, error_messages, trace_id, span_id, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.SagaID,
		string(entry.Status),
		entry.CurrentStep,
		nullableString(entry.Payload),
		entry.ErrorMessages,
		entry.TraceID,
		entry.SpanID,
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save saga log for %q: %w", entry.SagaID, err)
	}
	return nil
}

func (r *Repository) History(ctx context.Context, sagaID string) ([]sagalog.SagaLog, error) {
	const q = `
		SELECT saga_id, status, current_step, COALESCE(payload, ''), error_messages,
		       trace_id, span_id, updated_at
		FROM   saga_logs
		WHERE  saga_id = ?
		ORDER  BY id ASC`

	rows, err := r.db.QueryContext(ctx, q, sagaID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: history for %q: %w", sagaID, err)
	}
	defer rows.Close()

	var out []sagalog.SagaLog
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: history for %q: %w", sagaID, err)
	}
	return out, nil
}

// GetLatest returns the newest entry for sagaID.
func (r *Repository) GetLatest(ctx context.Context, sagaID string) (*sagalog.SagaLog, error) {
	const q = `
		SELECT saga_id, status, current_step, COALESCE(payload, ''), error_messages,
		       trace_id, span_id, updated_at
		FROM   saga_logs
		WHERE  saga_id = ?
		ORDER  BY id DESC
		LIMIT  1`

	entry, err := scanEntry(r.db.QueryRowContext(ctx, q, sagaID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: saga %q not found", sagaID)
	}
	return entry, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*sagalog.SagaLog, error) {
	var (
		entry     sagalog.SagaLog
		updatedAt string
	)
	err := row.Scan(
		&entry.SagaID,
		&entry.Status,
		&entry.CurrentStep,
		&entry.Payload,
		&entry.ErrorMessages,
		&entry.TraceID,
		&entry.SpanID,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan saga log: %w", err)
	}

	entry.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// nullableString stores NULL instead of empty TEXT for payload-less rows.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
