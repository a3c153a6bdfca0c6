package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/amishk599/cvvin/internal/model"
)

var (
	_ model.KVStore     = (*SQLiteStore)(nil)
	_ model.ResultStore = (*SQLiteStore)(nil)
)

// KeyLatestResult holds the most recent successful MatchResult.
const KeyLatestResult = "latest_result"

// SQLiteStore is a small key/value store backed by a single SQLite table.
// Every Set is one upsert statement, so a value is either fully written or
// not written at all.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// kv table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating kv table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the value stored under key. ok is false when the key is absent.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes value under key, replacing any previous value.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is a no-op.
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// SaveResult persists result as the latest analysis outcome.
func (s *SQLiteStore) SaveResult(ctx context.Context, result model.MatchResult) error {
	return saveResult(ctx, s, result)
}

// LatestResult returns the last saved result, or nil if none exists.
func (s *SQLiteStore) LatestResult(ctx context.Context) (*model.MatchResult, error) {
	return latestResult(ctx, s)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func saveResult(ctx context.Context, kv model.KVStore, result model.MatchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := kv.Set(ctx, KeyLatestResult, data); err != nil {
		return fmt.Errorf("%w: %w", model.ErrStorageFailure, err)
	}
	return nil
}

func latestResult(ctx context.Context, kv model.KVStore) (*model.MatchResult, error) {
	data, ok, err := kv.Get(ctx, KeyLatestResult)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStorageFailure, err)
	}
	if !ok {
		return nil, nil
	}
	var r model.MatchResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding result: %w", model.ErrStorageFailure, err)
	}
	return &r, nil
}
