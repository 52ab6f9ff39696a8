package interview

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/InterviewDeck/internal/models"
)

type staticQuestionSource struct {
	sets map[string]*models.QuestionSet
}

func (s *staticQuestionSource) QuestionSet(ctx context.Context, id string) (*models.QuestionSet, error) {
	qs, ok := s.sets[id]
	if !ok {
		return nil, errors.New("question set not found")
	}
	copied := *qs
	return &copied, nil
}

func sourceWith(id string, limitSeconds int) *staticQuestionSource {
	return &staticQuestionSource{sets: map[string]*models.QuestionSet{
		id: {
			ID:               id,
			Questions:        []string{"Tell me about a project.", "What would you change?"},
			TimeLimitSeconds: limitSeconds,
		},
	}}
}

type memRecordingStore struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func newMemRecordingStore() *memRecordingStore {
	return &memRecordingStore{saved: make(map[string][]byte)}
}

func (m *memRecordingStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[name] = data
	return "mem/" + name, nil
}

func (m *memRecordingStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func TestCreate_UnknownQuestionSet(t *testing.T) {
	m := NewManager(sourceWith("qs-1", 600), newMemRecordingStore())
	defer m.Stop()

	if _, err := m.Create(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown question set")
	}
}

func TestCreate_EmptyQuestionSet(t *testing.T) {
	src := &staticQuestionSource{sets: map[string]*models.QuestionSet{
		"qs-empty": {ID: "qs-empty", TimeLimitSeconds: 600},
	}}
	m := NewManager(src, newMemRecordingStore())
	defer m.Stop()

	if _, err := m.Create(context.Background(), "qs-empty"); !errors.Is(err, models.ErrNoQuestions) {
		t.Errorf("expected ErrNoQuestions, got %v", err)
	}
}

func TestSession_ExplicitCompletion(t *testing.T) {
	store := newMemRecordingStore()
	var completed []models.Recording
	var mu sync.Mutex
	m := NewManager(sourceWith("qs-1", 600), store, WithCompletionFunc(func(id string, rec models.Recording) {
		mu.Lock()
		completed = append(completed, rec)
		mu.Unlock()
	}))
	defer m.Stop()

	snap, err := m.Create(context.Background(), "qs-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if snap.Status != StatusCreated || len(snap.QuestionSet.Questions) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	// Recording before start is rejected.
	if err := m.AttachRecording(context.Background(), snap.ID, strings.NewReader("blob")); !errors.Is(err, models.ErrInterviewNotStarted) {
		t.Errorf("expected ErrInterviewNotStarted, got %v", err)
	}
	// Completing before start is rejected too.
	if _, err := m.Complete(context.Background(), snap.ID); !errors.Is(err, models.ErrInterviewNotStarted) {
		t.Errorf("expected ErrInterviewNotStarted, got %v", err)
	}

	if _, err := m.Start(context.Background(), snap.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.AttachRecording(context.Background(), snap.ID, bytes.NewReader([]byte("webm-bytes"))); err != nil {
		t.Fatalf("AttachRecording failed: %v", err)
	}

	rec, err := m.Complete(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if rec.SizeBytes != int64(len("webm-bytes")) || rec.Expired {
		t.Errorf("unexpected recording %+v", rec)
	}
	if !strings.HasPrefix(rec.StorageRef, "mem/rec_") {
		t.Errorf("unexpected storage ref %q", rec.StorageRef)
	}
	if store.count() != 1 {
		t.Errorf("expected one stored recording, got %d", store.count())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(completed) != 1 || completed[0].SessionID != snap.ID {
		t.Errorf("expected one completion callback, got %+v", completed)
	}
}

func TestSession_FinalizeOnce(t *testing.T) {
	m := NewManager(sourceWith("qs-1", 600), newMemRecordingStore())
	defer m.Stop()

	snap, _ := m.Create(context.Background(), "qs-1")
	m.Start(context.Background(), snap.ID)

	if _, err := m.Complete(context.Background(), snap.ID); err != nil {
		t.Fatalf("first Complete failed: %v", err)
	}
	if _, err := m.Complete(context.Background(), snap.ID); !errors.Is(err, models.ErrInterviewFinished) {
		t.Errorf("expected ErrInterviewFinished on second completion, got %v", err)
	}
}

func TestSession_TimerExpiryFinalizes(t *testing.T) {
	done := make(chan models.Recording, 1)
	// Time limit of zero seconds fires the expiry immediately.
	m := NewManager(sourceWith("qs-1", 0), newMemRecordingStore(), WithCompletionFunc(func(id string, rec models.Recording) {
		done <- rec
	}))
	defer m.Stop()

	snap, err := m.Create(context.Background(), "qs-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := m.Start(context.Background(), snap.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case rec := <-done:
		if !rec.Expired {
			t.Error("expected expiry-driven finalization to set Expired")
		}
	case <-time.After(time.Second):
		t.Fatal("expiry never finalized the session")
	}

	if _, err := m.Complete(context.Background(), snap.ID); !errors.Is(err, models.ErrInterviewFinished) {
		t.Errorf("expected ErrInterviewFinished after expiry, got %v", err)
	}
}

func TestClose_BeforeAndDuring(t *testing.T) {
	m := NewManager(sourceWith("qs-1", 600), newMemRecordingStore())
	defer m.Stop()

	snap, _ := m.Create(context.Background(), "qs-1")
	interrupted, err := m.Close(snap.ID)
	if err != nil || interrupted {
		t.Errorf("closing before start: interrupted=%v err=%v", interrupted, err)
	}
	if _, err := m.Snapshot(snap.ID); !errors.Is(err, models.ErrUnknownSession) {
		t.Errorf("expected session to be released, got %v", err)
	}

	snap, _ = m.Create(context.Background(), "qs-1")
	m.Start(context.Background(), snap.ID)
	interrupted, err = m.Close(snap.ID)
	if err != nil {
		t.Fatalf("mid-interview close failed: %v", err)
	}
	if !interrupted {
		t.Error("expected mid-interview close to be flagged")
	}
}

func TestFinalize_StorageDenialIsRecoverable(t *testing.T) {
	store := newMemRecordingStore()
	store.err = errors.New("permission denied")
	m := NewManager(sourceWith("qs-1", 600), store)
	defer m.Stop()

	snap, _ := m.Create(context.Background(), "qs-1")
	m.Start(context.Background(), snap.ID)
	m.AttachRecording(context.Background(), snap.ID, strings.NewReader("blob"))

	rec, err := m.Complete(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("expected storage denial to be recoverable, got %v", err)
	}
	if rec.StorageRef != "" {
		t.Errorf("expected empty storage ref on denial, got %q", rec.StorageRef)
	}
}

func TestFileQuestionSource(t *testing.T) {
	dir := t.TempDir()
	doc := `{"questions": ["Q1", "Q2", "Q3"], "time_limit_seconds": 300}`
	if err := os.WriteFile(filepath.Join(dir, "qs-1.json"), []byte(doc), 0o644); err != nil {
		t.Fatalf("fixture write failed: %v", err)
	}

	src := NewFileQuestionSource(dir)
	qs, err := src.QuestionSet(context.Background(), "qs-1")
	if err != nil {
		t.Fatalf("QuestionSet failed: %v", err)
	}
	if qs.ID != "qs-1" || len(qs.Questions) != 3 || qs.TimeLimitSeconds != 300 {
		t.Errorf("unexpected question set %+v", qs)
	}

	if _, err := src.QuestionSet(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing document")
	}
	if _, err := src.QuestionSet(context.Background(), "../escape"); err == nil {
		t.Error("expected error for path traversal id")
	}
}

func TestDirRecordingStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirRecordingStore(filepath.Join(dir, "recordings"))
	if err != nil {
		t.Fatalf("NewDirRecordingStore failed: %v", err)
	}

	ref, err := store.Save(context.Background(), "rec_abc.webm", strings.NewReader("blob"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		t.Fatalf("reading saved recording failed: %v", err)
	}
	if string(data) != "blob" {
		t.Errorf("unexpected recording contents %q", data)
	}
}
