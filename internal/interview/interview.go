// Package interview manages timed interview capture sessions: question-set
// loading, the countdown timer, and recording finalization.
package interview

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/InterviewDeck/internal/flow"
	"github.com/BTreeMap/InterviewDeck/internal/models"
	"github.com/BTreeMap/InterviewDeck/internal/util"
)

// SessionStatus tracks a capture session through its lifetime.
type SessionStatus string

const (
	// StatusCreated means the session holds its question set but the
	// countdown has not started.
	StatusCreated SessionStatus = "created"
	// StatusActive means the countdown is running.
	StatusActive SessionStatus = "active"
	// StatusFinished means the session was finalized, by explicit completion
	// or timer expiry.
	StatusFinished SessionStatus = "finished"
	// StatusClosed means the session was closed without finishing.
	StatusClosed SessionStatus = "closed"
)

// QuestionSource loads question sets by identifier.
type QuestionSource interface {
	QuestionSet(ctx context.Context, id string) (*models.QuestionSet, error)
}

// RecordingStore persists finalized recordings and returns a storage
// reference.
type RecordingStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// CompletionFunc is invoked once per session, on explicit completion or timer
// expiry, whichever happens first.
type CompletionFunc func(sessionID string, rec models.Recording)

// Session is one interview capture session.
type Session struct {
	ID          string
	QuestionSet *models.QuestionSet

	status    SessionStatus
	timerID   string
	recording []byte
	startedAt time.Time
	expired   bool
}

// Snapshot is a point-in-time view of a session for API responses.
type Snapshot struct {
	ID               string             `json:"id"`
	Status           SessionStatus      `json:"status"`
	QuestionSet      models.QuestionSet `json:"question_set"`
	StartedAt        time.Time          `json:"started_at,omitzero"`
	RecordingPending bool               `json:"recording_pending"`
}

// Opts holds configuration options for the session manager.
type Opts struct {
	Timer      flow.Timer
	OnComplete CompletionFunc
}

// Option defines a configuration option for the session manager.
type Option func(*Opts)

// WithTimer overrides the countdown timer implementation.
func WithTimer(t flow.Timer) Option {
	return func(o *Opts) { o.Timer = t }
}

// WithCompletionFunc registers a callback invoked when sessions finalize.
func WithCompletionFunc(fn CompletionFunc) Option {
	return func(o *Opts) { o.OnComplete = fn }
}

// Manager creates and drives interview capture sessions. All methods are safe
// for concurrent use.
type Manager struct {
	questions  QuestionSource
	recordings RecordingStore
	timer      flow.Timer
	onComplete CompletionFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager. A nil recordings store is allowed;
// finalized sessions then report an empty storage reference.
func NewManager(questions QuestionSource, recordings RecordingStore, opts ...Option) *Manager {
	cfg := Opts{Timer: flow.NewSimpleTimer()}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Creating interview Manager")
	return &Manager{
		questions:  questions,
		recordings: recordings,
		timer:      cfg.Timer,
		onComplete: cfg.OnComplete,
		sessions:   make(map[string]*Session),
	}
}

// Create loads the question set for questionSetID and opens a session around
// it. A question set with no questions is a recoverable error, not a panic.
func (m *Manager) Create(ctx context.Context, questionSetID string) (Snapshot, error) {
	qs, err := m.questions.QuestionSet(ctx, questionSetID)
	if err != nil {
		slog.Error("Manager.Create: question set load failed", "error", err, "question_set_id", questionSetID)
		return Snapshot{}, fmt.Errorf("failed to load question set %s: %w", questionSetID, err)
	}
	if len(qs.Questions) == 0 {
		slog.Warn("Manager.Create: question set is empty", "question_set_id", questionSetID)
		return Snapshot{}, models.ErrNoQuestions
	}

	s := &Session{
		ID:          uuid.NewString(),
		QuestionSet: qs,
		status:      StatusCreated,
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	slog.Info("Manager.Create: session created", "session_id", s.ID, "question_set_id", questionSetID, "questions", len(qs.Questions))
	return m.snapshotOf(s), nil
}

// Start begins the session's countdown. The timer expiry finalizes the
// session if an explicit completion has not already done so.
func (m *Manager) Start(ctx context.Context, sessionID string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return Snapshot{}, models.ErrUnknownSession
	}
	if s.status != StatusCreated {
		slog.Warn("Manager.Start: session not startable", "session_id", sessionID, "status", s.status)
		return Snapshot{}, models.ErrInterviewFinished
	}

	limit := time.Duration(s.QuestionSet.TimeLimitSeconds) * time.Second
	id, err := m.timer.ScheduleAfter(limit, func() { m.expire(sessionID) })
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to schedule expiry timer: %w", err)
	}
	s.timerID = id
	s.status = StatusActive
	s.startedAt = time.Now()

	slog.Info("Manager.Start: countdown started", "session_id", sessionID, "time_limit", limit)
	return m.snapshotOf(s), nil
}

// AttachRecording buffers the recording blob for a running session. The blob
// is persisted on finalization, not here.
func (m *Manager) AttachRecording(ctx context.Context, sessionID string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return models.ErrUnknownSession
	}
	if s.status != StatusActive {
		slog.Warn("Manager.AttachRecording: session not active", "session_id", sessionID, "status", s.status)
		if s.status == StatusCreated {
			return models.ErrInterviewNotStarted
		}
		return models.ErrInterviewFinished
	}

	s.recording = data
	slog.Debug("Manager.AttachRecording: recording buffered", "session_id", sessionID, "size_bytes", len(data))
	return nil
}

// Complete explicitly finalizes a running session.
func (m *Manager) Complete(ctx context.Context, sessionID string) (models.Recording, error) {
	return m.finalize(ctx, sessionID, false)
}

// Close tears a session down. Closing before start releases it silently;
// closing mid-interview is allowed but reported so the caller can warn.
func (m *Manager) Close(sessionID string) (interrupted bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return false, models.ErrUnknownSession
	}
	interrupted = s.status == StatusActive
	if s.timerID != "" {
		m.timer.Cancel(s.timerID)
	}
	s.status = StatusClosed
	delete(m.sessions, sessionID)

	slog.Info("Manager.Close: session closed", "session_id", sessionID, "interrupted", interrupted)
	return interrupted, nil
}

// Snapshot returns the current view of a session.
func (m *Manager) Snapshot(sessionID string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Snapshot{}, models.ErrUnknownSession
	}
	return m.snapshotOf(s), nil
}

// Stop cancels all timers. Sessions are not finalized.
func (m *Manager) Stop() {
	m.timer.Stop()
}

// expire is the timer callback: finalize unless completion won the race.
func (m *Manager) expire(sessionID string) {
	slog.Info("Manager.expire: time limit reached", "session_id", sessionID)
	if _, err := m.finalize(context.Background(), sessionID, true); err != nil {
		slog.Warn("Manager.expire: finalize failed", "error", err, "session_id", sessionID)
	}
}

// finalize transitions a session to finished exactly once, persists whatever
// recording was attached, and fires the completion callback.
func (m *Manager) finalize(ctx context.Context, sessionID string, expired bool) (models.Recording, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return models.Recording{}, models.ErrUnknownSession
	}
	if s.status == StatusCreated {
		m.mu.Unlock()
		return models.Recording{}, models.ErrInterviewNotStarted
	}
	if s.status != StatusActive {
		m.mu.Unlock()
		return models.Recording{}, models.ErrInterviewFinished
	}
	s.status = StatusFinished
	s.expired = expired
	if s.timerID != "" {
		m.timer.Cancel(s.timerID)
	}
	data := s.recording
	s.recording = nil
	m.mu.Unlock()

	rec := models.Recording{
		SessionID:  sessionID,
		SizeBytes:  int64(len(data)),
		Expired:    expired,
		RecordedAt: time.Now(),
	}
	if len(data) > 0 && m.recordings != nil {
		name := util.GenerateRecordingName()
		ref, err := m.recordings.Save(ctx, name, bytes.NewReader(data))
		if err != nil {
			// Storage denial is recoverable: the session still finishes.
			slog.Error("Manager.finalize: recording store failed", "error", err, "session_id", sessionID)
		} else {
			rec.StorageRef = ref
		}
	}

	slog.Info("Manager.finalize: session finished", "session_id", sessionID, "expired", expired, "storage_ref", rec.StorageRef)
	if m.onComplete != nil {
		m.onComplete(sessionID, rec)
	}
	return rec, nil
}

func (m *Manager) snapshotOf(s *Session) Snapshot {
	return Snapshot{
		ID:               s.ID,
		Status:           s.status,
		QuestionSet:      *s.QuestionSet,
		StartedAt:        s.startedAt,
		RecordingPending: len(s.recording) > 0,
	}
}
