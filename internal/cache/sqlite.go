// Package cache provides storage backends for the InterviewDeck local cache.
//
// This file implements the SQLite-backed store.
package cache

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a cache store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite cache store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// Get returns the entry for key, or (nil, nil) on a miss.
func (s *SQLiteStore) Get(key string) (*Entry, error) {
	var e Entry
	err := s.db.QueryRow(`SELECT key, json, updated_at FROM cache_entries WHERE key = ?`, key).
		Scan(&e.Key, &e.JSON, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore Get miss", "key", key)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore Get failed", "error", err, "key", key)
		return nil, fmt.Errorf("failed to query cache entry %s: %w", key, err)
	}
	slog.Debug("SQLiteStore Get hit", "key", key, "updated_at", e.UpdatedAt)
	return &e, nil
}

// Put stores or replaces the entry under its key.
func (s *SQLiteStore) Put(entry Entry) error {
	_, err := s.db.Exec(
		`INSERT INTO cache_entries (key, json, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET json = excluded.json, updated_at = excluded.updated_at`,
		entry.Key, entry.JSON, entry.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore Put failed", "error", err, "key", entry.Key)
		return fmt.Errorf("failed to upsert cache entry %s: %w", entry.Key, err)
	}
	slog.Debug("SQLiteStore Put succeeded", "key", entry.Key)
	return nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key)
	if err != nil {
		slog.Error("SQLiteStore Delete failed", "error", err, "key", key)
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	slog.Debug("SQLiteStore Delete succeeded", "key", key)
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
