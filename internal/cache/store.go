// Package cache provides the local persistent cache for InterviewDeck.
//
// Loaders use it to keep the company registry, per-company flow graphs, and
// bot-guard bookkeeping across restarts. Entries are JSON documents keyed by
// a fixed name and stamped with their last update time so the freshness
// comparison in the loaders is a real timestamp check.
package cache

import (
	"strings"
	"time"
)

// Fixed cache key names and builders.
const (
	// RegistryKey holds the serialized company registry.
	RegistryKey = "company-registry-data"
	// flowKeySuffix is appended to a company ID to form its flow cache key.
	flowKeySuffix = "-flow-data"
	// visitHistoryPrefix prefixes per-profile visit timestamp sequences.
	visitHistoryPrefix = "visit-history:"
	// banPrefix prefixes per-profile ban expiries (epoch millis).
	banPrefix = "bot-ban-until:"
)

// FlowKey returns the cache key holding companyID's flow graph.
func FlowKey(companyID string) string {
	return companyID + flowKeySuffix
}

// VisitHistoryKey returns the cache key holding profileID's visit history.
func VisitHistoryKey(profileID string) string {
	return visitHistoryPrefix + profileID
}

// BanKey returns the cache key holding profileID's ban expiry.
func BanKey(profileID string) string {
	return banPrefix + profileID
}

// Entry is one cached JSON document.
type Entry struct {
	Key       string    `json:"key"`
	JSON      string    `json:"json"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistent cache abstraction. Get returns (nil, nil) on a
// cache miss; absence is not an error.
type Store interface {
	Get(key string) (*Entry, error)
	Put(entry Entry) error
	Delete(key string) error
	Close() error
}

// Opts holds configuration options for cache store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for cache store backends.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL connection strings and
// "sqlite" for anything else (file paths).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
