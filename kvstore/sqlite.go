package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transients (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_transients_expires ON transients(expires_at);
CREATE TABLE IF NOT EXISTS options (
	name  TEXT PRIMARY KEY,
	value BLOB NOT NULL
);`

// SQLite is a KV implementation backed by a SQLite database file.
type SQLite struct {
	db     *sql.DB
	path   string
	now    func() time.Time
	closed atomic.Bool
}

// SQLiteOption configures a SQLite store.
type SQLiteOption func(*SQLite)

// WithSQLiteClock overrides the time source used for expiry.
func WithSQLiteClock(now func() time.Time) SQLiteOption {
	return func(s *SQLite) {
		if now != nil {
			s.now = now
		}
	}
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("kvstore: sqlite path is required")
	}

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("kvstore: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open sqlite: %w", err)
	}
	// SQLite serializes writers anyway; one connection also keeps :memory: coherent.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kvstore: sqlite ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kvstore: apply schema: %w", err)
	}

	s := &SQLite{db: db, path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get retrieves a value. Expired rows are removed lazily and reported as a miss.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool) {
	if s.closed.Load() {
		return nil, false
	}

	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM transients WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if err != nil {
		return nil, false
	}

	if expiresAt != 0 && s.now().Unix() >= expiresAt {
		_, _ = s.db.ExecContext(ctx,
			`DELETE FROM transients WHERE key = ? AND expires_at = ?`, key, expiresAt)
		return nil, false
	}
	return value, true
}

// Set stores a value. ttl <= 0 means the value does not expire.
func (s *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !validKey(key) {
		return ErrInvalidKey
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).Unix()
	}
	if value == nil {
		value = []byte{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transients (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("kvstore: set %q: %w", key, err)
	}
	return nil
}

// Delete removes a value. Idempotent.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transients WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kvstore: delete %q: %w", key, err)
	}
	return nil
}

// GetOption retrieves a persistent option.
func (s *SQLite) GetOption(ctx context.Context, name string) ([]byte, bool) {
	if s.closed.Load() {
		return nil, false
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM options WHERE name = ?`, name).Scan(&value)
	if err != nil {
		return nil, false
	}
	return value, true
}

// SetOption stores a persistent option.
func (s *SQLite) SetOption(ctx context.Context, name string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !validKey(name) {
		return ErrInvalidKey
	}
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO options (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		name, value)
	if err != nil {
		return fmt.Errorf("kvstore: set option %q: %w", name, err)
	}
	return nil
}

// DeleteOption removes a persistent option. Idempotent.
func (s *SQLite) DeleteOption(ctx context.Context, name string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM options WHERE name = ?`, name); err != nil {
		return fmt.Errorf("kvstore: delete option %q: %w", name, err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.PingContext(ctx)
}

// Close closes the underlying database. Subsequent calls are no-ops.
func (s *SQLite) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// String describes the backing database.
func (s *SQLite) String() string {
	return fmt.Sprintf("SQLite (%s)", s.path)
}

// Ensure SQLite implements KV
var _ KV = (*SQLite)(nil)
