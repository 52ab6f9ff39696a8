package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/BTreeMap/InterviewDeck/internal/cache"
	"github.com/BTreeMap/InterviewDeck/internal/models"
)

// fakeSource returns canned company rows or a canned error.
type fakeSource struct {
	rows  []models.CompanyRow
	err   error
	calls int
}

func (f *fakeSource) Companies(ctx context.Context) ([]models.CompanyRow, error) {
	f.calls++
	return f.rows, f.err
}

func TestLoad_RemoteSuccessPersistsCache(t *testing.T) {
	src := &fakeSource{rows: []models.CompanyRow{{ID: "acme", Name: "Acme Corp"}}}
	store := cache.NewInMemoryStore()
	l := NewLoader(src, store)

	reg := l.Load(context.Background())
	if reg == nil {
		t.Fatal("expected registry, got nil")
	}
	entry, ok := reg.Companies["acme"]
	if !ok {
		t.Fatal("expected acme entry")
	}
	if entry.DisplayName != "Acme Corp" {
		t.Errorf("unexpected display name %q", entry.DisplayName)
	}
	if entry.SourceFile != "acme-flow.json" {
		t.Errorf("unexpected source file %q", entry.SourceFile)
	}
	if _, ok := reg.Companies[models.DefaultCompanyID]; !ok {
		t.Error("expected synthesized default entry")
	}

	cached, err := store.Get(cache.RegistryKey)
	if err != nil || cached == nil {
		t.Fatalf("expected persisted registry cache, got %v (err %v)", cached, err)
	}
}

func TestLoad_FailureSynthesizesFallback(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	l := NewLoader(src, cache.NewInMemoryStore(), WithContextCompany("acme"))

	reg := l.Load(context.Background())
	if reg == nil {
		t.Fatal("expected fallback registry, got nil")
	}
	if len(reg.Companies) != 2 {
		t.Fatalf("expected default + context entries, got %d", len(reg.Companies))
	}
	if _, ok := reg.Companies["acme"]; !ok {
		t.Error("expected synthesized context company entry")
	}
	if reg.DefaultID != models.DefaultCompanyID {
		t.Errorf("unexpected default ID %q", reg.DefaultID)
	}
}

func TestLoad_FailureServesStaleCache(t *testing.T) {
	store := cache.NewInMemoryStore()
	stale := models.CompanyRegistry{
		Companies: map[string]models.CompanyEntry{"acme": {DisplayName: "Acme Corp"}},
		DefaultID: models.DefaultCompanyID,
	}
	data, _ := json.Marshal(stale)
	store.Put(cache.Entry{Key: cache.RegistryKey, JSON: string(data), UpdatedAt: time.Now().Add(-2 * time.Hour)})

	src := &fakeSource{err: errors.New("connection refused")}
	l := NewLoader(src, store)

	reg := l.Load(context.Background())
	if _, ok := reg.Companies["acme"]; !ok {
		t.Error("expected stale cached registry to be served")
	}
	if src.calls == 0 {
		t.Error("expected a refetch attempt for a stale cache")
	}
}

func TestLoad_TrustCacheSkipsRemote(t *testing.T) {
	store := cache.NewInMemoryStore()
	cachedReg := models.CompanyRegistry{
		Companies: map[string]models.CompanyEntry{"acme": {DisplayName: "Acme Corp"}},
		DefaultID: models.DefaultCompanyID,
	}
	data, _ := json.Marshal(cachedReg)
	// Old timestamp: trust-cache must ignore staleness entirely.
	store.Put(cache.Entry{Key: cache.RegistryKey, JSON: string(data), UpdatedAt: time.Now().Add(-48 * time.Hour)})

	src := &fakeSource{rows: []models.CompanyRow{{ID: "other", Name: "Other"}}}
	l := NewLoader(src, store, WithTrustCache(true))

	reg := l.Load(context.Background())
	if src.calls != 0 {
		t.Errorf("expected no remote fetch under trust-cache, got %d calls", src.calls)
	}
	if _, ok := reg.Companies["acme"]; !ok {
		t.Error("expected cached registry")
	}
}

func TestLoad_FreshCacheSkipsRemote(t *testing.T) {
	store := cache.NewInMemoryStore()
	cachedReg := models.CompanyRegistry{
		Companies: map[string]models.CompanyEntry{"acme": {DisplayName: "Acme Corp"}},
		DefaultID: models.DefaultCompanyID,
	}
	data, _ := json.Marshal(cachedReg)
	store.Put(cache.Entry{Key: cache.RegistryKey, JSON: string(data), UpdatedAt: time.Now()})

	src := &fakeSource{rows: []models.CompanyRow{{ID: "other", Name: "Other"}}}
	l := NewLoader(src, store)

	l.Load(context.Background())
	if src.calls != 0 {
		t.Errorf("expected no remote fetch for fresh cache, got %d calls", src.calls)
	}
}

func TestLoad_UndecodableCacheIsIgnored(t *testing.T) {
	store := cache.NewInMemoryStore()
	store.Put(cache.Entry{Key: cache.RegistryKey, JSON: "{not json", UpdatedAt: time.Now()})

	src := &fakeSource{rows: []models.CompanyRow{{ID: "acme", Name: "Acme Corp"}}}
	l := NewLoader(src, store)

	reg := l.Load(context.Background())
	if src.calls != 1 {
		t.Errorf("expected remote fetch for corrupt cache, got %d calls", src.calls)
	}
	if _, ok := reg.Companies["acme"]; !ok {
		t.Error("expected rebuilt registry")
	}
}
