// Package metacache persists small UI metadata records (custom category
// lists, saved views) in a local embedded database with a single store.
package metacache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Fixed database and store names.
const (
	DatabaseName = "taskmgr-v1"
	StoreName    = "meta"
)

// StoreError reports a failed store transaction. The driver error is
// reachable through errors.Is and errors.As.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("meta %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("meta %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Cache is the local metadata store. The connection is opened on first use
// and shared by all callers until Close.
type Cache struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex
	db *sql.DB
}

// New returns a Cache keeping its database under dir. Nothing is opened yet.
func New(dir string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{dir: dir, logger: logger}
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return filepath.Join(c.dir, DatabaseName+".db")
}

// open returns the memoized connection, creating it and the store on first
// use. Concurrent first callers block on mu and receive the same handle.
func (c *Cache) open(ctx context.Context) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("create directory: %w", err)}
	}

	dsn := c.Path() + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}

	schema := `CREATE TABLE IF NOT EXISTS ` + StoreName + ` (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("create store: %w", err)}
	}

	c.logger.Debug("Opened metadata cache", "path", c.Path())
	c.db = db
	return db, nil
}

// PutMeta stores value under key, replacing any previous record. It returns
// once the write transaction has committed.
func (c *Cache) PutMeta(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode meta %q: %w", key, err)
	}

	db, err := c.open(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "put", Key: key, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO ` + StoreName + ` (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := tx.ExecContext(ctx, query, key, string(data)); err != nil {
		return &StoreError{Op: "put", Key: key, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// GetMeta returns the raw JSON value stored under key and whether a record
// exists.
func (c *Cache) GetMeta(ctx context.Context, key string) (json.RawMessage, bool, error) {
	db, err := c.open(ctx)
	if err != nil {
		return nil, false, err
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, false, &StoreError{Op: "get", Key: key, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	var value string
	err = tx.QueryRowContext(ctx, `SELECT value FROM `+StoreName+` WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &StoreError{Op: "get", Key: key, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, &StoreError{Op: "get", Key: key, Err: err}
	}
	return json.RawMessage(value), true, nil
}

// DeleteMeta removes the record under key. Deleting an absent key is a no-op.
func (c *Cache) DeleteMeta(ctx context.Context, key string) error {
	db, err := c.open(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "delete", Key: key, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+StoreName+` WHERE key = ?`, key); err != nil {
		return &StoreError{Op: "delete", Key: key, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Close releases the connection. The next operation reopens it. Close is a
// no-op when nothing is open.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		return &StoreError{Op: "close", Err: err}
	}
	return nil
}

// Get decodes the value stored under key into a T.
func Get[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var out T
	raw, ok, err := c.GetMeta(ctx, key)
	if err != nil || !ok {
		return out, ok, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("decode meta %q: %w", key, err)
	}
	return out, true, nil
}
