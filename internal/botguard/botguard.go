// Package botguard throttles rapid repeat visits from one browser profile.
package botguard

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/InterviewDeck/internal/cache"
)

// Throttle thresholds. A profile that loads the page maxVisits times inside
// one window is banned for banDuration.
const (
	defaultMaxVisits   = 6
	defaultWindow      = 30 * time.Second
	defaultBanDuration = time.Hour
)

// Opts holds configuration options for the bot guard.
type Opts struct {
	MaxVisits   int
	Window      time.Duration
	BanDuration time.Duration
}

// Option defines a configuration option for the bot guard.
type Option func(*Opts)

// WithMaxVisits sets the visit count that triggers a ban.
func WithMaxVisits(n int) Option {
	return func(o *Opts) { o.MaxVisits = n }
}

// WithWindow sets the sliding window visits are counted in.
func WithWindow(d time.Duration) Option {
	return func(o *Opts) { o.Window = d }
}

// WithBanDuration sets how long a triggered ban lasts.
func WithBanDuration(d time.Duration) Option {
	return func(o *Opts) { o.BanDuration = d }
}

// Verdict is the outcome of recording one visit.
type Verdict struct {
	Banned   bool      `json:"banned"`
	BanUntil time.Time `json:"ban_until,omitzero"`
}

// Guard tracks per-profile visit history in the cache store and bans profiles
// that exceed the visit threshold.
type Guard struct {
	store cache.Store
	opts  Opts
	now   func() time.Time
}

// NewGuard creates a bot guard over store.
func NewGuard(store cache.Store, opts ...Option) *Guard {
	cfg := Opts{
		MaxVisits:   defaultMaxVisits,
		Window:      defaultWindow,
		BanDuration: defaultBanDuration,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Creating botguard Guard", "max_visits", cfg.MaxVisits, "window", cfg.Window, "ban_duration", cfg.BanDuration)
	return &Guard{store: store, opts: cfg, now: time.Now}
}

// RecordVisit registers one page load for profileID and returns the resulting
// verdict. An active ban short-circuits without touching the history. The
// visit that crosses the threshold is itself rejected, with a ban expiry
// strictly in the future.
func (g *Guard) RecordVisit(profileID string) (Verdict, error) {
	now := g.now()

	if until, ok, err := g.banUntil(profileID); err != nil {
		return Verdict{}, err
	} else if ok && until.After(now) {
		slog.Debug("Guard.RecordVisit: profile is banned", "profile_id", profileID, "ban_until", until)
		return Verdict{Banned: true, BanUntil: until}, nil
	}

	history, err := g.history(profileID)
	if err != nil {
		return Verdict{}, err
	}

	// Keep only visits inside the sliding window, then add this one.
	cutoff := now.Add(-g.opts.Window)
	recent := history[:0]
	for _, ts := range history {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	recent = append(recent, now)

	if len(recent) >= g.opts.MaxVisits {
		until := now.Add(g.opts.BanDuration)
		if err := g.putJSON(cache.BanKey(profileID), until, now); err != nil {
			return Verdict{}, err
		}
		if err := g.store.Delete(cache.VisitHistoryKey(profileID)); err != nil {
			slog.Warn("Guard.RecordVisit: failed to clear visit history", "error", err, "profile_id", profileID)
		}
		slog.Info("Guard.RecordVisit: profile banned", "profile_id", profileID, "visits", len(recent), "ban_until", until)
		return Verdict{Banned: true, BanUntil: until}, nil
	}

	if err := g.putJSON(cache.VisitHistoryKey(profileID), recent, now); err != nil {
		return Verdict{}, err
	}
	slog.Debug("Guard.RecordVisit: visit recorded", "profile_id", profileID, "recent_visits", len(recent))
	return Verdict{}, nil
}

// IsBanned reports whether profileID has an unexpired ban.
func (g *Guard) IsBanned(profileID string) (bool, time.Time, error) {
	until, ok, err := g.banUntil(profileID)
	if err != nil {
		return false, time.Time{}, err
	}
	if !ok || !until.After(g.now()) {
		return false, time.Time{}, nil
	}
	return true, until, nil
}

// banUntil reads the stored ban expiry for profileID.
func (g *Guard) banUntil(profileID string) (time.Time, bool, error) {
	entry, err := g.store.Get(cache.BanKey(profileID))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read ban entry: %w", err)
	}
	if entry == nil {
		return time.Time{}, false, nil
	}
	var until time.Time
	if err := json.Unmarshal([]byte(entry.JSON), &until); err != nil {
		slog.Warn("Guard.banUntil: undecodable ban entry, ignoring", "error", err, "profile_id", profileID)
		return time.Time{}, false, nil
	}
	return until, true, nil
}

// history reads the stored visit timestamps for profileID. Undecodable
// entries are treated as empty.
func (g *Guard) history(profileID string) ([]time.Time, error) {
	entry, err := g.store.Get(cache.VisitHistoryKey(profileID))
	if err != nil {
		return nil, fmt.Errorf("failed to read visit history: %w", err)
	}
	if entry == nil {
		return nil, nil
	}
	var history []time.Time
	if err := json.Unmarshal([]byte(entry.JSON), &history); err != nil {
		slog.Warn("Guard.history: undecodable visit history, resetting", "error", err, "profile_id", profileID)
		return nil, nil
	}
	return history, nil
}

func (g *Guard) putJSON(key string, v any, now time.Time) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := g.store.Put(cache.Entry{Key: key, JSON: string(data), UpdatedAt: now}); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}
