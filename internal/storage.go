package internal

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Store is the persisted key/value cache. Values are opaque JSON documents.
// Put always replaces the whole value; there is no TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]KeyValuePair, error)
	Close() error
}

// SQLiteStore is a Store backed by the cacheKV table
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore instance
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLiteStore opens the database at path and wraps it in a store
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &StorageError{Key: path, Op: "open", Err: err}
	}
	return NewSQLiteStore(db), nil
}

// Get returns the value stored under key or ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM cacheKV WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Key: key, Op: "get", Err: err}
	}
	return []byte(value), nil
}

// Put replaces the value stored under key
func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO cacheKV (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, string(value))
	if err != nil {
		return &StorageError{Key: key, Op: "put", Err: err}
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cacheKV WHERE key = ?", key); err != nil {
		return &StorageError{Key: key, Op: "delete", Err: err}
	}
	return nil
}

// List returns all pairs whose key starts with prefix, ordered by key
func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]KeyValuePair, error) {
	pairs, err := QueryCacheKV(s.db, prefix+"%")
	if err != nil {
		return nil, &StorageError{Key: prefix, Op: "list", Err: err}
	}
	// LIKE treats _ and % as wildcards and ignores ASCII case, keep exact prefix matches only
	out := pairs[:0]
	for _, p := range pairs {
		if strings.HasPrefix(p.Key, prefix) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
