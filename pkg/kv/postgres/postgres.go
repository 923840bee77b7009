package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pocket-ledger/pkg/kv"

	"github.com/lib/pq"
)

// PostgresStore implements kv.BatchStore on a single PostgreSQL table.
type PostgresStore struct {
	db     *sql.DB
	config PostgresStoreConfig
}

type PostgresStoreConfig struct {
	Name            string
	DSN             string
	Table           string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

func DefaultPostgresStoreConfig() PostgresStoreConfig {
	return PostgresStoreConfig{
		Name:            "postgres",
		Table:           "kv_entries",
		MaxOpenConns:    4,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

func NewPostgresStore(ctx context.Context, config PostgresStoreConfig) (*PostgresStore, error) {
	if config.DSN == "" {
		return nil, errors.New("postgres: DSN is required")
	}
	if config.Name == "" {
		config.Name = "postgres"
	}
	if config.Table == "" {
		config.Table = "kv_entries"
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to ping server: %w: %v", kv.ErrUnavailable, err)
	}

	s := &PostgresStore{db: db, config: config}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, pq.QuoteIdentifier(s.config.Table))

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("postgres: failed to create table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := kv.ValidateKey(key); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, pq.QuoteIdentifier(s.config.Table))

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kv.ErrKeyNotFound
	}
	if err != nil {
		return nil, s.wrap(err, "get")
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	return s.SetMulti(ctx, map[string][]byte{key: value})
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, pq.QuoteIdentifier(s.config.Table))
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return s.wrap(err, "delete")
	}
	return nil
}

func (s *PostgresStore) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	results := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return results, nil
	}
	for _, key := range keys {
		if err := kv.ValidateKey(key); err != nil {
			return nil, err
		}
	}

	query := fmt.Sprintf(`SELECT key, value FROM %s WHERE key = ANY($1)`, pq.QuoteIdentifier(s.config.Table))
	rows, err := s.db.QueryContext(ctx, query, pq.Array(keys))
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

// SetMulti upserts every item inside one transaction.
func (s *PostgresStore) SetMulti(ctx context.Context, items map[string][]byte) error {
	if len(items) == 0 {
		return nil
	}
	for key := range items {
		if err := kv.ValidateKey(key); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap(err, "set multi")
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		pq.QuoteIdentifier(s.config.Table))

	for key, value := range items {
		if _, err := tx.ExecContext(ctx, query, key, value); err != nil {
			return s.wrap(err, "set multi")
		}
	}

	if err := tx.Commit(); err != nil {
		return s.wrap(err, "set multi")
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.wrap(s.db.PingContext(ctx), "ping")
}

func (s *PostgresStore) Name() string {
	return s.config.Name
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || err.Error() == "sql: database is closed" {
		err = fmt.Errorf("%w: %v", kv.ErrClosed, err)
	}
	return kv.WrapError(err, s.config.Name, op)
}
