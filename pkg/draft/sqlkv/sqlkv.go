// Package sqlkv is a draft.KV backed by a database/sql table, so drafts
// survive process restarts. SQLite (modernc.org/sqlite, driver "sqlite") and
// PostgreSQL (lib/pq, driver "postgres") are supported; callers import the
// driver they need.
package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Dialect selects placeholder syntax.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DefaultTable is the table drafts are kept in.
const DefaultTable = "form_drafts"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store implements draft.KV on top of *sql.DB.
type Store struct {
	db      *sql.DB
	table   string
	dialect Dialect
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTable overrides DefaultTable.
func WithTable(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.table = name
		}
	}
}

// WithClock overrides the clock used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New wraps an open database. The schema is created by Init.
func New(db *sql.DB, dialect Dialect, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlkv: missing database")
	}
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("sqlkv: unsupported dialect %q", dialect)
	}
	s := &Store{
		db:      db,
		table:   DefaultTable,
		dialect: dialect,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if !tableName.MatchString(s.table) {
		return nil, fmt.Errorf("sqlkv: invalid table name %q", s.table)
	}
	return s, nil
}

// Open opens driver/dsn, creates the schema and returns a Store that owns
// the connection.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	dialect, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlkv: open %s: %w", driver, err)
	}
	if dialect == DialectSQLite {
		// in-memory SQLite databases are per connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlkv: ping %s: %w", driver, err)
	}
	s, err := New(db, dialect, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Init creates the drafts table. Safe to call repeatedly.
func (s *Store) Init(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    draft_key TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    updated_at BIGINT NOT NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlkv: create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := fmt.Sprintf("SELECT payload FROM %s WHERE draft_key = %s", s.table, s.arg(1))
	var payload string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlkv: get %q: %w", key, err)
	}
	return []byte(payload), true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (draft_key, payload, updated_at) VALUES (%s, %s, %s)
ON CONFLICT (draft_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		s.table, s.arg(1), s.arg(2), s.arg(3))
	if _, err := s.db.ExecContext(ctx, stmt, key, string(value), s.now().UnixMilli()); err != nil {
		return fmt.Errorf("sqlkv: put %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE draft_key = %s", s.table, s.arg(1))
	if _, err := s.db.ExecContext(ctx, stmt, key); err != nil {
		return fmt.Errorf("sqlkv: delete %q: %w", key, err)
	}
	return nil
}

// UpdatedAt reports when key was last written.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	query := fmt.Sprintf("SELECT updated_at FROM %s WHERE draft_key = %s", s.table, s.arg(1))
	var millis int64
	err := s.db.QueryRowContext(ctx, query, key).Scan(&millis)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("sqlkv: updated_at %q: %w", key, err)
	}
	return time.UnixMilli(millis), true, nil
}

func (s *Store) arg(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func dialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite":
		return DialectSQLite, nil
	case "postgres":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("sqlkv: unsupported driver %q", driver)
	}
}
