package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/InterviewDeck/internal/cache"
	"github.com/BTreeMap/InterviewDeck/internal/models"
)

// Fixed question texts used by the menu transform.
const (
	rootQuestion       = "Welcome! Which area would you like to practice today?"
	categoryQuestion   = "Great choice. Which topic should we focus on?"
	complexityQuestion = "How challenging should this session be?"
)

// complexityOptions is the fixed option sequence attached to every test node.
var complexityOptions = []string{
	string(models.ComplexityEasy),
	string(models.ComplexityMedium),
	string(models.ComplexityAdvanced),
}

// MenuSource provides the test_menus table of the hosted store.
type MenuSource interface {
	Menu(ctx context.Context, companyID string) (*models.MenuRow, error)
}

// RegistrySource resolves company identifiers to registry entries.
type RegistrySource interface {
	Load(ctx context.Context) *models.CompanyRegistry
}

// Opts holds configuration options for the flow loader.
type Opts struct {
	// ReadCache controls whether the local cache is consulted before the
	// hosted store. When disabled the cache is write-only: graphs are still
	// persisted for a later run that re-enables reads.
	ReadCache bool
}

// Option defines a configuration option for the flow loader.
type Option func(*Opts)

// WithReadCache toggles consulting the local cache on load.
func WithReadCache(read bool) Option {
	return func(o *Opts) { o.ReadCache = read }
}

// Loader builds per-company flow graphs from hosted menu rows, with a local
// persistent cache and an in-memory per-company cache. Load never fails:
// every error path falls back to the bundled default graph.
type Loader struct {
	menus    MenuSource
	registry RegistrySource
	store    cache.Store
	opts     Opts

	mu     sync.Mutex
	mem    map[string]*models.FlowGraph
	gen    uint64
	latest map[string]uint64
}

// NewLoader creates a flow loader. Cache reads default to enabled.
func NewLoader(menus MenuSource, registry RegistrySource, store cache.Store, opts ...Option) *Loader {
	cfg := Opts{ReadCache: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Creating flow Loader", "read_cache", cfg.ReadCache)
	return &Loader{
		menus:    menus,
		registry: registry,
		store:    store,
		opts:     cfg,
		mem:      make(map[string]*models.FlowGraph),
		latest:   make(map[string]uint64),
	}
}

// Load returns the flow graph for companyID. An empty company, an unknown
// company, or any failure along the way yields the bundled default graph;
// errors never propagate to the caller.
func (l *Loader) Load(ctx context.Context, companyID string) *models.FlowGraph {
	if companyID == "" {
		slog.Debug("Loader.Load: no company context, using default graph")
		return DefaultGraph()
	}

	reg := l.registry.Load(ctx)
	if _, ok := reg.Companies[companyID]; !ok {
		slog.Warn("Loader.Load: company not in registry, using default graph", "company_id", companyID)
		return DefaultGraph()
	}

	l.mu.Lock()
	if g, ok := l.mem[companyID]; ok {
		l.mu.Unlock()
		slog.Debug("Loader.Load: in-memory cache hit", "company_id", companyID)
		return g
	}
	// Stamp this load so a slower concurrent load for the same company
	// cannot overwrite a newer result.
	l.gen++
	gen := l.gen
	l.latest[companyID] = gen
	l.mu.Unlock()

	if l.opts.ReadCache {
		if g := l.cachedGraph(companyID); g != nil {
			l.commit(companyID, gen, g, false)
			return g
		}
	}

	row, err := l.menus.Menu(ctx, companyID)
	if err != nil {
		slog.Warn("Loader.Load: menu fetch failed, using default graph", "error", err, "company_id", companyID)
		return DefaultGraph()
	}
	if row == nil {
		slog.Warn("Loader.Load: company has no menu rows, using default graph", "company_id", companyID)
		return DefaultGraph()
	}

	g, err := TransformMenu(companyID, row)
	if err != nil {
		slog.Warn("Loader.Load: menu transform failed, using default graph", "error", err, "company_id", companyID)
		return DefaultGraph()
	}

	l.commit(companyID, gen, g, true)
	slog.Info("Loader.Load: flow graph built", "company_id", companyID, "nodes", len(g.Nodes))
	return g
}

// Invalidate drops companyID's graph from both caches, forcing a rebuild on
// the next load.
func (l *Loader) Invalidate(companyID string) {
	l.mu.Lock()
	delete(l.mem, companyID)
	l.mu.Unlock()
	if err := l.store.Delete(cache.FlowKey(companyID)); err != nil {
		slog.Warn("Loader.Invalidate: cache delete failed", "error", err, "company_id", companyID)
	}
}

// cachedGraph returns the locally cached graph for companyID, or nil when
// absent, undecodable, or invalid.
func (l *Loader) cachedGraph(companyID string) *models.FlowGraph {
	entry, err := l.store.Get(cache.FlowKey(companyID))
	if err != nil {
		slog.Warn("Loader.cachedGraph: cache read failed", "error", err, "company_id", companyID)
		return nil
	}
	if entry == nil {
		return nil
	}
	var g models.FlowGraph
	if err := json.Unmarshal([]byte(entry.JSON), &g); err != nil {
		slog.Warn("Loader.cachedGraph: cached graph is undecodable, ignoring", "error", err, "company_id", companyID)
		return nil
	}
	if err := g.Validate(); err != nil {
		slog.Warn("Loader.cachedGraph: cached graph is invalid, ignoring", "error", err, "company_id", companyID)
		return nil
	}
	slog.Debug("Loader.cachedGraph: cache hit", "company_id", companyID, "cached_at", entry.UpdatedAt)
	return &g
}

// commit publishes a freshly built graph to the in-memory cache and, when
// persist is set, to the local store. Results from superseded loads are
// discarded.
func (l *Loader) commit(companyID string, gen uint64, g *models.FlowGraph, persist bool) {
	l.mu.Lock()
	if l.latest[companyID] != gen {
		l.mu.Unlock()
		slog.Debug("Loader.commit: load superseded, discarding result", "company_id", companyID)
		return
	}
	l.mem[companyID] = g
	l.mu.Unlock()

	if !persist {
		return
	}
	data, err := json.Marshal(g)
	if err != nil {
		slog.Warn("Loader.commit: failed to marshal graph for cache", "error", err, "company_id", companyID)
		return
	}
	if err := l.store.Put(cache.Entry{Key: cache.FlowKey(companyID), JSON: string(data), UpdatedAt: time.Now()}); err != nil {
		slog.Warn("Loader.commit: failed to persist graph cache", "error", err, "company_id", companyID)
	}
}

// TransformMenu converts a test_menus row into a flow graph. Category and
// test order follow source array order exactly; no sorting is applied.
// Missing per-complexity question-set identifiers become empty sequences,
// never an error.
func TransformMenu(companyID string, row *models.MenuRow) (*models.FlowGraph, error) {
	var categories []models.MenuCategory
	if err := json.Unmarshal([]byte(row.MenuJSON), &categories); err != nil {
		return nil, fmt.Errorf("failed to decode menu JSON for %s: %w", companyID, err)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("menu for %s has no categories", companyID)
	}

	g := &models.FlowGraph{
		Nodes:   make(map[string]models.Node),
		Options: make(map[string]models.Option),
		Metadata: models.GraphMetadata{
			CompanyID:   companyID,
			LastUpdated: row.UpdatedAt,
			Version:     1,
		},
	}

	g.Options[string(models.ComplexityEasy)] = models.Option{Text: "Easy"}
	g.Options[string(models.ComplexityMedium)] = models.Option{Text: "Medium"}
	g.Options[string(models.ComplexityAdvanced)] = models.Option{Text: "Advanced"}
	g.Options[models.OptionStartOver] = models.Option{Text: "Start over"}
	g.Options[models.OptionRedeemCode] = models.Option{Text: "Redeem a prepaid code"}

	var rootOptions []string
	for _, cat := range categories {
		catKey := slugify(cat.Name)
		rootOptions = append(rootOptions, catKey)
		g.Options[catKey] = models.Option{Text: cat.Name}

		var testKeys []string
		for _, test := range cat.Tests {
			testKey := catKey + "-" + slugify(test.Name)
			testKeys = append(testKeys, testKey)
			g.Options[testKey] = models.Option{Text: test.Name}
			g.Nodes[testKey] = models.Node{
				Question:     complexityQuestion,
				Options:      complexityOptions,
				DisplayText:  test.Name,
				ParentKey:    catKey,
				QuestionSets: questionSetsFor(test),
			}
		}

		g.Nodes[catKey] = models.Node{
			Question:    categoryQuestion,
			Options:     testKeys,
			DisplayText: cat.Name,
			ParentKey:   models.RootNodeKey,
		}
	}

	g.Nodes[models.RootNodeKey] = models.Node{
		Question: rootQuestion,
		Options:  rootOptions,
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("transformed graph for %s is invalid: %w", companyID, err)
	}
	return g, nil
}

// questionSetsFor resolves a test's per-complexity question-set identifiers,
// matching tier names case-insensitively.
func questionSetsFor(test models.MenuTest) map[models.Complexity][]string {
	sets := map[models.Complexity][]string{
		models.ComplexityEasy:     {},
		models.ComplexityMedium:   {},
		models.ComplexityAdvanced: {},
	}
	for name, ids := range test.QuestionSetIDs {
		if tier, ok := models.ParseComplexity(name); ok {
			sets[tier] = append(sets[tier], ids...)
		}
	}
	return sets
}

// slugify lowercases a display name and collapses runs of non-alphanumeric
// characters into single dashes.
func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
