package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLite creates a new SQLite-backed session store. Items older than ttl
// read as absent; ttl <= 0 disables expiry.
func NewSQLite(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, ttl: ttl, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS session_items (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_session_items_updated ON session_items(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns the value stored under key. Expired items read as absent.
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	row := s.db.QueryRow(`SELECT value, updated_at FROM session_items WHERE key = ?`, key)

	var value string
	var updatedAt int64
	err := row.Scan(&value, &updatedAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("scan session item %q: %w", key, err)
	}

	if s.expired(updatedAt) {
		slog.Debug("Stored session item expired", "key", key)
		return "", false, nil
	}
	return value, true, nil
}

// Set creates or replaces the item under key.
func (s *SQLiteStore) Set(key, value string) error {
	query := `
	INSERT INTO session_items (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	if _, err := s.db.Exec(query, key, value, s.now().Unix()); err != nil {
		return fmt.Errorf("upsert session item %q: %w", key, err)
	}
	return nil
}

// Remove deletes the item under key.
func (s *SQLiteStore) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM session_items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete session item %q: %w", key, err)
	}
	return nil
}

// CleanupExpired removes items older than the TTL.
func (s *SQLiteStore) CleanupExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	threshold := s.now().Add(-s.ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM session_items WHERE updated_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired session items: %w", err)
	}
	return result.RowsAffected()
}

// Clear removes every item.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_items`); err != nil {
		return fmt.Errorf("clear session items: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func (s *SQLiteStore) expired(updatedAt int64) bool {
	if s.ttl <= 0 {
		return false
	}
	return updatedAt < s.now().Add(-s.ttl).Unix()
}

var _ Repository = (*SQLiteStore)(nil)
