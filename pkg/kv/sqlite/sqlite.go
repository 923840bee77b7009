// Package sqlite stores ledger blobs in a single local SQLite file.
//
// It is the default backend: the file lives next to the user's other application
// data, survives restarts, and needs no running server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pocket-ledger/pkg/kv"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements kv.BatchStore on top of a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	config SQLiteStoreConfig
}

// SQLiteStoreConfig holds configuration for the SQLite store.
type SQLiteStoreConfig struct {
	Name string
	// Path is the database file. ":memory:" opens a private in-memory database.
	Path string
	// BusyTimeout is how long a writer waits for a lock held by another connection.
	BusyTimeout time.Duration
}

// DefaultSQLiteStoreConfig returns a configuration storing data in ./pocket-ledger.db.
func DefaultSQLiteStoreConfig() SQLiteStoreConfig {
	return SQLiteStoreConfig{
		Name:        "sqlite",
		Path:        "pocket-ledger.db",
		BusyTimeout: 5 * time.Second,
	}
}

// NewSQLiteStore opens (creating if needed) the database file and its table.
func NewSQLiteStore(ctx context.Context, config SQLiteStoreConfig) (*SQLiteStore, error) {
	if config.Name == "" {
		config.Name = "sqlite"
	}
	if config.Path == "" {
		return nil, fmt.Errorf("sqlite: no database path configured")
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	if config.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory for %q: %w", config.Path, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		config.Path, config.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", config.Path, err)
	}
	// A single connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, config: config}
	if err := s.initTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	return err
}

const upsertQuery = `INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// Get retrieves a blob.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := kv.ValidateKey(key); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kv.ErrKeyNotFound
	}
	if err != nil {
		return nil, s.wrap(err, "get")
	}
	return value, nil
}

// Set overwrites a blob.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}

	if _, err := s.db.ExecContext(ctx, upsertQuery, key, value, time.Now().UnixMilli()); err != nil {
		return s.wrap(err, "set")
	}
	return nil
}

// Delete removes a key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return s.wrap(err, "delete")
	}
	return nil
}

// GetMulti retrieves several keys with one query.
func (s *SQLiteStore) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	results := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return results, nil
	}

	args := make([]any, len(keys))
	for i, key := range keys {
		if err := kv.ValidateKey(key); err != nil {
			return nil, err
		}
		args[i] = key
	}

	query := `SELECT key, value FROM kv_entries WHERE key IN (?` + strings.Repeat(", ?", len(keys)-1) + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrap(err, "get multi")
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, s.wrap(err, "get multi")
		}
		results[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(err, "get multi")
	}
	return results, nil
}

// SetMulti overwrites several keys inside one transaction.
func (s *SQLiteStore) SetMulti(ctx context.Context, items map[string][]byte) error {
	for key := range items {
		if err := kv.ValidateKey(key); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap(err, "begin")
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for key, value := range items {
		if value == nil {
			value = []byte{}
		}
		if _, err := tx.ExecContext(ctx, upsertQuery, key, value, now); err != nil {
			return s.wrap(err, "set multi")
		}
	}

	if err := tx.Commit(); err != nil {
		return s.wrap(err, "commit")
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.wrap(err, "ping")
	}
	return nil
}

// Name returns the backend name.
func (s *SQLiteStore) Name() string {
	return s.config.Name
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) wrap(err error, op string) error {
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is closed") {
		err = fmt.Errorf("%w: %v", kv.ErrClosed, err)
	}
	return kv.WrapError(err, s.config.Name, op)
}
