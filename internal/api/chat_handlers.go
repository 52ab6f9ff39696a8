package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/InterviewDeck/internal/flow"
	"github.com/BTreeMap/InterviewDeck/internal/models"
)

// chatSessionResult is the session view returned by the chat endpoints.
type chatSessionResult struct {
	SessionID string `json:"session_id"`
	CompanyID string `json:"company_id,omitempty"`
	flow.SessionSnapshot
}

// createChatSessionHandler handles POST /api/chat/sessions.
func (s *Server) createChatSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.createChatSessionHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.createChatSessionHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.CreateChatSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createChatSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.createChatSessionHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	budget := models.DefaultSessionBudgetMinutes
	if req.BudgetMinutes != nil {
		budget = *req.BudgetMinutes
	}

	// The loader never fails; unknown companies get the default graph.
	graph := s.flows.Load(r.Context(), req.CompanyID)
	nav := flow.NewNavigator(graph)
	session := &chatSession{
		companyID:    req.CompanyID,
		orchestrator: flow.NewOrchestrator(nav, budget, s.opts.Generator),
		createdAt:    time.Now(),
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	slog.Info("Server.createChatSessionHandler: session created", "session_id", id, "company_id", req.CompanyID, "budget_minutes", budget)
	writeJSONResponse(w, http.StatusCreated, models.Success(s.sessionResult(id, session)))
}

// chatSessionHandler routes /api/chat/sessions/{id}[/{action}].
func (s *Server) chatSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/chat/sessions/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing session ID"))
		return
	}

	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		slog.Debug("Server.chatSessionHandler: session not found", "session_id", id)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			writeJSONResponse(w, http.StatusOK, models.Success(s.sessionResult(id, session)))
		case http.MethodDelete:
			s.mu.Lock()
			delete(s.sessions, id)
			s.mu.Unlock()
			slog.Info("Server.chatSessionHandler: session deleted", "session_id", id)
			writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session deleted", nil))
		default:
			w.Header().Set("Allow", "GET, DELETE")
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "select":
		s.selectOptionHandler(w, r, id, session)
	case "confirm":
		s.confirmHandler(w, r, id, session)
	case "redeem":
		s.redeemCodeHandler(w, r, id, session)
	case "restart":
		s.restartHandler(w, r, id, session)
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown session action"))
	}
}

// selectOptionHandler handles POST /api/chat/sessions/{id}/select.
func (s *Server) selectOptionHandler(w http.ResponseWriter, r *http.Request, id string, session *chatSession) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.SelectOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.selectOptionHandler: failed to decode JSON", "error", err, "session_id", id)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	if err := session.orchestrator.SelectOption(r.Context(), req.Option); err != nil {
		slog.Warn("Server.selectOptionHandler: selection rejected", "error", err, "session_id", id, "option", req.Option)
		writeJSONResponse(w, statusForSessionError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.sessionResult(id, session)))
}

// confirmHandler handles POST /api/chat/sessions/{id}/confirm.
func (s *Server) confirmHandler(w http.ResponseWriter, r *http.Request, id string, session *chatSession) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := session.orchestrator.Confirm(r.Context()); err != nil {
		slog.Warn("Server.confirmHandler: confirmation failed", "error", err, "session_id", id)
		// Generation failures still produced a transcript message and the
		// deduction stands, so the session view rides along.
		writeJSONResponse(w, statusForSessionError(err), models.APIResponse{
			Status:  string(models.APIStatusError),
			Message: err.Error(),
			Result:  s.sessionResult(id, session),
		})
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.sessionResult(id, session)))
}

// redeemCodeHandler handles POST /api/chat/sessions/{id}/redeem.
func (s *Server) redeemCodeHandler(w http.ResponseWriter, r *http.Request, id string, session *chatSession) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.RedeemCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.redeemCodeHandler: failed to decode JSON", "error", err, "session_id", id)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.redeemCodeHandler: malformed code", "error", err, "session_id", id)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	if err := session.orchestrator.RedeemCode(r.Context(), req.Code); err != nil {
		writeJSONResponse(w, statusForSessionError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.sessionResult(id, session)))
}

// restartHandler handles POST /api/chat/sessions/{id}/restart.
func (s *Server) restartHandler(w http.ResponseWriter, r *http.Request, id string, session *chatSession) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := session.orchestrator.SelectOption(r.Context(), models.OptionStartOver); err != nil {
		writeJSONResponse(w, statusForSessionError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.sessionResult(id, session)))
}

func (s *Server) sessionResult(id string, session *chatSession) chatSessionResult {
	return chatSessionResult{
		SessionID:       id,
		CompanyID:       session.companyID,
		SessionSnapshot: session.orchestrator.Snapshot(),
	}
}

// statusForSessionError maps orchestrator errors onto HTTP status codes.
func statusForSessionError(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidOption),
		errors.Is(err, models.ErrNotAwaitingConfirm),
		errors.Is(err, models.ErrNoPaymentPending):
		return http.StatusConflict
	case errors.Is(err, models.ErrSessionProcessing):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
