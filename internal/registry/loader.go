// Package registry loads the company registry that selects company-specific
// chat flows.
//
// The loader never lets a transport or parse failure escape its boundary: on
// any failure it substitutes the cached registry when one exists, else a
// minimal synthesized registry containing at most the current navigation
// context company plus the fixed default identifier.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/InterviewDeck/internal/cache"
	"github.com/BTreeMap/InterviewDeck/internal/models"
)

// DefaultRefreshInterval is how long a cached registry is considered fresh
// when cache trust is not enabled.
const DefaultRefreshInterval = time.Hour

// CompanySource provides the companies table of the hosted store.
type CompanySource interface {
	Companies(ctx context.Context) ([]models.CompanyRow, error)
}

// Opts holds configuration options for the registry loader.
type Opts struct {
	// TrustCache short-circuits freshness checking: a cached registry is
	// trusted indefinitely once present. Off by default so the timestamp
	// comparison actually runs.
	TrustCache bool
	// RefreshInterval bounds how old a cached registry may be before a
	// refetch is attempted.
	RefreshInterval time.Duration
	// ContextCompanyID is the company identifier from the current navigation
	// context, synthesized into the fallback registry when set.
	ContextCompanyID string
}

// Option defines a configuration option for the registry loader.
type Option func(*Opts)

// WithTrustCache enables trusting a cached registry indefinitely.
func WithTrustCache(trust bool) Option {
	return func(o *Opts) { o.TrustCache = trust }
}

// WithRefreshInterval sets the cache freshness window.
func WithRefreshInterval(d time.Duration) Option {
	return func(o *Opts) { o.RefreshInterval = d }
}

// WithContextCompany sets the navigation-context company for fallbacks.
func WithContextCompany(id string) Option {
	return func(o *Opts) { o.ContextCompanyID = id }
}

// Loader builds and caches the company registry.
type Loader struct {
	source CompanySource
	store  cache.Store
	opts   Opts
}

// NewLoader creates a registry loader over the given source and cache store.
func NewLoader(source CompanySource, store cache.Store, opts ...Option) *Loader {
	cfg := Opts{RefreshInterval: DefaultRefreshInterval}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Creating registry Loader", "trust_cache", cfg.TrustCache, "refresh_interval", cfg.RefreshInterval)
	return &Loader{source: source, store: store, opts: cfg}
}

// Load returns the company registry. It never returns an error: remote
// failures fall back to the cached registry, then to a minimal synthesized
// one.
func (l *Loader) Load(ctx context.Context) *models.CompanyRegistry {
	cached, cachedAt := l.cached()
	if cached != nil {
		if l.opts.TrustCache {
			slog.Debug("Loader.Load: trusting cached registry", "cached_at", cachedAt)
			return cached
		}
		if time.Since(cachedAt) < l.opts.RefreshInterval {
			slog.Debug("Loader.Load: cached registry is fresh", "cached_at", cachedAt)
			return cached
		}
		slog.Debug("Loader.Load: cached registry is stale, refetching", "cached_at", cachedAt)
	}

	reg, err := l.Refresh(ctx)
	if err != nil {
		if cached != nil {
			slog.Warn("Loader.Load: refresh failed, serving stale cache", "error", err)
			return cached
		}
		slog.Warn("Loader.Load: refresh failed with no cache, synthesizing fallback", "error", err)
		return l.fallback()
	}
	return reg
}

// Refresh fetches the registry from the hosted store and persists it to the
// local cache. Unlike Load it reports failures, so the periodic refresh job
// can log them.
func (l *Loader) Refresh(ctx context.Context) (*models.CompanyRegistry, error) {
	rows, err := l.source.Companies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch companies: %w", err)
	}

	now := time.Now()
	reg := &models.CompanyRegistry{
		Companies:   make(map[string]models.CompanyEntry, len(rows)+1),
		DefaultID:   models.DefaultCompanyID,
		LastUpdated: now,
	}
	for _, row := range rows {
		reg.Companies[row.ID] = models.CompanyEntry{
			DisplayName: row.Name,
			SourceFile:  row.ID + "-flow.json",
			LogoRef:     row.ID + ".png",
		}
	}
	if _, ok := reg.Companies[reg.DefaultID]; !ok {
		reg.Companies[reg.DefaultID] = defaultEntry()
	}

	data, err := json.Marshal(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := l.store.Put(cache.Entry{Key: cache.RegistryKey, JSON: string(data), UpdatedAt: now}); err != nil {
		// Persisting is best effort; the fresh registry is still usable.
		slog.Warn("Loader.Refresh: failed to persist registry cache", "error", err)
	}

	slog.Info("Loader.Refresh: registry rebuilt", "companies", len(reg.Companies))
	return reg, nil
}

// cached returns the locally cached registry and its storage timestamp, or
// (nil, zero) when absent or undecodable.
func (l *Loader) cached() (*models.CompanyRegistry, time.Time) {
	entry, err := l.store.Get(cache.RegistryKey)
	if err != nil {
		slog.Warn("Loader.cached: cache read failed", "error", err)
		return nil, time.Time{}
	}
	if entry == nil {
		return nil, time.Time{}
	}
	var reg models.CompanyRegistry
	if err := json.Unmarshal([]byte(entry.JSON), &reg); err != nil {
		slog.Warn("Loader.cached: cached registry is undecodable, ignoring", "error", err)
		return nil, time.Time{}
	}
	if reg.Companies == nil {
		return nil, time.Time{}
	}
	return &reg, entry.UpdatedAt
}

// fallback synthesizes the minimal registry used when nothing else is
// available.
func (l *Loader) fallback() *models.CompanyRegistry {
	reg := &models.CompanyRegistry{
		Companies: map[string]models.CompanyEntry{
			models.DefaultCompanyID: defaultEntry(),
		},
		DefaultID: models.DefaultCompanyID,
	}
	if id := l.opts.ContextCompanyID; id != "" && id != models.DefaultCompanyID {
		reg.Companies[id] = models.CompanyEntry{
			DisplayName: id,
			SourceFile:  id + "-flow.json",
		}
	}
	return reg
}

func defaultEntry() models.CompanyEntry {
	return models.CompanyEntry{
		DisplayName: "Practice Interview",
		SourceFile:  "default-flow.json",
	}
}
