// Package cache provides storage backends for the InterviewDeck local cache.
//
// This file implements the PostgreSQL-backed store.
package cache

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a cache store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL cache store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// Get returns the entry for key, or (nil, nil) on a miss.
func (s *PostgresStore) Get(key string) (*Entry, error) {
	var e Entry
	err := s.db.QueryRow(`SELECT key, json, updated_at FROM cache_entries WHERE key = $1`, key).
		Scan(&e.Key, &e.JSON, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore Get miss", "key", key)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore Get failed", "error", err, "key", key)
		return nil, fmt.Errorf("failed to query cache entry %s: %w", key, err)
	}
	slog.Debug("PostgresStore Get hit", "key", key, "updated_at", e.UpdatedAt)
	return &e, nil
}

// Put stores or replaces the entry under its key.
func (s *PostgresStore) Put(entry Entry) error {
	_, err := s.db.Exec(
		`INSERT INTO cache_entries (key, json, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET json = EXCLUDED.json, updated_at = EXCLUDED.updated_at`,
		entry.Key, entry.JSON, entry.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore Put failed", "error", err, "key", entry.Key)
		return fmt.Errorf("failed to upsert cache entry %s: %w", entry.Key, err)
	}
	slog.Debug("PostgresStore Put succeeded", "key", entry.Key)
	return nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (s *PostgresStore) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM cache_entries WHERE key = $1`, key)
	if err != nil {
		slog.Error("PostgresStore Delete failed", "error", err, "key", key)
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	slog.Debug("PostgresStore Delete succeeded", "key", key)
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
