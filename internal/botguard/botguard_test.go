package botguard

import (
	"testing"
	"time"

	"github.com/BTreeMap/InterviewDeck/internal/cache"
)

func testGuard(t *testing.T, opts ...Option) (*Guard, *time.Time) {
	t.Helper()
	g := NewGuard(cache.NewInMemoryStore(), opts...)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	return g, &now
}

func TestRecordVisit_SixthVisitInWindowBans(t *testing.T) {
	g, now := testGuard(t)

	for i := 0; i < 5; i++ {
		v, err := g.RecordVisit("profile-1")
		if err != nil {
			t.Fatalf("visit %d failed: %v", i+1, err)
		}
		if v.Banned {
			t.Fatalf("visit %d unexpectedly banned", i+1)
		}
		*now = now.Add(4 * time.Second)
	}

	// Sixth visit, 20 seconds after the first: inside the 30-second window.
	v, err := g.RecordVisit("profile-1")
	if err != nil {
		t.Fatalf("sixth visit failed: %v", err)
	}
	if !v.Banned {
		t.Fatal("expected sixth visit inside the window to trigger a ban")
	}
	if !v.BanUntil.After(*now) {
		t.Errorf("ban expiry %v is not strictly in the future of %v", v.BanUntil, *now)
	}
}

func TestRecordVisit_SlowVisitsNeverBan(t *testing.T) {
	g, now := testGuard(t)

	for i := 0; i < 20; i++ {
		v, err := g.RecordVisit("profile-1")
		if err != nil {
			t.Fatalf("visit %d failed: %v", i+1, err)
		}
		if v.Banned {
			t.Fatalf("visit %d banned despite 31-second spacing", i+1)
		}
		*now = now.Add(31 * time.Second)
	}
}

func TestRecordVisit_BanShortCircuits(t *testing.T) {
	g, now := testGuard(t)

	for i := 0; i < 6; i++ {
		if _, err := g.RecordVisit("profile-1"); err != nil {
			t.Fatalf("visit failed: %v", err)
		}
	}

	v, err := g.RecordVisit("profile-1")
	if err != nil {
		t.Fatalf("post-ban visit failed: %v", err)
	}
	if !v.Banned {
		t.Fatal("expected active ban to reject further visits")
	}

	banned, until, err := g.IsBanned("profile-1")
	if err != nil || !banned {
		t.Fatalf("IsBanned = %v, %v, %v; want banned", banned, until, err)
	}

	// After the ban expires the profile can visit again.
	*now = until.Add(time.Second)
	v, err = g.RecordVisit("profile-1")
	if err != nil {
		t.Fatalf("visit after expiry failed: %v", err)
	}
	if v.Banned {
		t.Error("expected expired ban to clear")
	}
}

func TestRecordVisit_ProfilesAreIndependent(t *testing.T) {
	g, _ := testGuard(t)

	for i := 0; i < 6; i++ {
		if _, err := g.RecordVisit("fast-profile"); err != nil {
			t.Fatalf("visit failed: %v", err)
		}
	}
	v, err := g.RecordVisit("other-profile")
	if err != nil {
		t.Fatalf("other profile visit failed: %v", err)
	}
	if v.Banned {
		t.Error("ban leaked across profiles")
	}
}

func TestRecordVisit_CustomThreshold(t *testing.T) {
	g, now := testGuard(t, WithMaxVisits(3), WithBanDuration(10*time.Minute))

	g.RecordVisit("p")
	g.RecordVisit("p")
	v, err := g.RecordVisit("p")
	if err != nil {
		t.Fatalf("third visit failed: %v", err)
	}
	if !v.Banned {
		t.Fatal("expected third visit to ban with MaxVisits(3)")
	}
	if want := now.Add(10 * time.Minute); !v.BanUntil.Equal(want) {
		t.Errorf("ban until %v, want %v", v.BanUntil, want)
	}
}
