// Package api provides HTTP handlers and the main API server logic for
// InterviewDeck.
//
// It exposes RESTful endpoints for the company registry, per-company flow
// graphs, chat sessions driven by the flow orchestrator, interview capture
// sessions, admin account creation, and bot-guarded visit recording.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/BTreeMap/InterviewDeck/internal/botguard"
	"github.com/BTreeMap/InterviewDeck/internal/flow"
	"github.com/BTreeMap/InterviewDeck/internal/interview"
	"github.com/BTreeMap/InterviewDeck/internal/models"
	"github.com/BTreeMap/InterviewDeck/internal/notify"
)

// RegistryLoader resolves the company registry.
type RegistryLoader interface {
	Load(ctx context.Context) *models.CompanyRegistry
}

// GraphLoader resolves per-company flow graphs.
type GraphLoader interface {
	Load(ctx context.Context, companyID string) *models.FlowGraph
}

// AccountCreator creates an authentication identity plus profile row.
type AccountCreator interface {
	CreateUserWithProfile(ctx context.Context, req models.CreateUserRequest) (string, error)
}

// Opts holds configuration options for the API server.
type Opts struct {
	// Addr is the listen address. Defaults to ":8080".
	Addr string
	// Generator backs the orchestrator's generation step. Nil falls back to
	// deterministic local preambles.
	Generator flow.Generator
	// Notifier sends the optional SMS welcome on account creation. Nil
	// disables the welcome.
	Notifier notify.Sender
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithGenerator sets the generation backend for chat sessions.
func WithGenerator(g flow.Generator) Option {
	return func(o *Opts) { o.Generator = g }
}

// WithNotifier sets the SMS sender for account-creation welcomes.
func WithNotifier(n notify.Sender) Option {
	return func(o *Opts) { o.Notifier = n }
}

// chatSession pairs one orchestrator with its company context.
type chatSession struct {
	companyID    string
	orchestrator *flow.Orchestrator
	createdAt    time.Time
}

// Server holds the API server's dependencies and live chat sessions.
type Server struct {
	opts       Opts
	registry   RegistryLoader
	flows      GraphLoader
	interviews *interview.Manager
	guard      *botguard.Guard
	accounts   AccountCreator

	mu       sync.RWMutex
	sessions map[string]*chatSession

	httpServer *http.Server
}

// NewServer creates an API server over its collaborating modules. interviews,
// guard, and accounts may be nil; the corresponding endpoints then report the
// feature as unavailable instead of panicking.
func NewServer(registry RegistryLoader, flows GraphLoader, interviews *interview.Manager, guard *botguard.Guard, accounts AccountCreator, opts ...Option) *Server {
	cfg := Opts{Addr: ":8080"}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Creating API Server", "addr", cfg.Addr)
	return &Server{
		opts:       cfg,
		registry:   registry,
		flows:      flows,
		interviews: interviews,
		guard:      guard,
		accounts:   accounts,
		sessions:   make(map[string]*chatSession),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/registry", s.registryHandler)
	mux.HandleFunc("/api/flows/", s.flowHandler)
	mux.HandleFunc("/api/chat/sessions", s.createChatSessionHandler)
	mux.HandleFunc("/api/chat/sessions/", s.chatSessionHandler)
	mux.HandleFunc("/api/interviews", s.createInterviewHandler)
	mux.HandleFunc("/api/interviews/", s.interviewHandler)
	mux.HandleFunc("/api/admin/users", s.createUserHandler)
	mux.HandleFunc("/api/visits", s.recordVisitHandler)
	return mux
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	slog.Info("API server listening", "addr", s.opts.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	slog.Info("API server shutting down")
	return s.httpServer.Shutdown(ctx)
}
