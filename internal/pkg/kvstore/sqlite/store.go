// Package sqlite provides a SQLite-backed implementation of kvstore.Store.
//
// WAL mode is enabled on Open so readers never block the single writer
// connection while concurrent requests touch the same database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jcmexdev/pizzeria-storefront/internal/pkg/kvstore"

	// Pure-Go driver, no CGO required.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key         TEXT    PRIMARY KEY,
    value       BLOB    NOT NULL,
    -- Unix nanoseconds; 0 means the row never expires.
    expires_at  INTEGER NOT NULL DEFAULT 0,
    updated_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_kv_expires_at ON kv(expires_at) WHERE expires_at > 0;
`

// Store is the SQLite implementation of kvstore.Store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ kvstore.Store = (*Store)(nil)

// Open opens (or creates) the database at path and applies the schema.
//
//	store, err := sqlite.Open("./data/storefront.db")
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT value, expires_at FROM kv WHERE key = ?`

	var (
		value     []byte
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, q, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kvstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %q: %w", key, err)
	}

	if expiresAt > 0 && s.now().UnixNano() > expiresAt {
		// Lazy purge; a failure here only means the row lingers until the next read.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ? AND expires_at = ?`, key, expiresAt)
		return nil, kvstore.ErrNotFound
	}

	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const q = `
		INSERT INTO kv (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`

	now := s.now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	if value == nil {
		value = []byte{}
	}

	if _, err := s.db.ExecContext(ctx, q, key, value, expiresAt, formatTime(now)); err != nil {
		return fmt.Errorf("sqlite: set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: delete %q: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes every expired row and reports how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE expires_at > 0 AND expires_at < ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite: purge expired: %w", err)
	}
	return res.RowsAffected()
}
