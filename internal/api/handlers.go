package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/InterviewDeck/internal/models"
	"github.com/BTreeMap/InterviewDeck/internal/notify"
)

// registryHandler handles GET /api/registry.
func (s *Server) registryHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.registryHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.registryHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	// Load never fails; the worst case is the synthesized fallback registry.
	reg := s.registry.Load(r.Context())
	writeJSONResponse(w, http.StatusOK, models.Success(reg))
}

// flowHandler handles GET /api/flows/{companyID}.
func (s *Server) flowHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.flowHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.flowHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	companyID := strings.TrimPrefix(r.URL.Path, "/api/flows/")
	if companyID == "" || strings.Contains(companyID, "/") {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing company ID"))
		return
	}
	// Unknown companies and load failures both resolve to the default graph.
	graph := s.flows.Load(r.Context(), companyID)
	writeJSONResponse(w, http.StatusOK, models.Success(graph))
}

// createUserHandler handles POST /api/admin/users: auth identity plus profile
// row, with an optional SMS welcome.
func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.createUserHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.createUserHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.accounts == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Account creation is not configured"))
		return
	}

	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createUserHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.createUserHandler: validation failed", "error", err, "email", req.Email)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	userID, err := s.accounts.CreateUserWithProfile(r.Context(), req)
	if err != nil {
		slog.Error("Server.createUserHandler: account creation failed", "error", err, "email", req.Email)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create user"))
		return
	}

	// SMS welcome is best effort: delivery failures never fail the creation.
	if req.Phone != "" && s.opts.Notifier != nil {
		if err := s.opts.Notifier.SendSMS(r.Context(), req.Phone, notify.WelcomeBody(req.FullName)); err != nil {
			slog.Warn("Server.createUserHandler: welcome SMS failed", "error", err, "user_id", userID)
		}
	}

	slog.Info("Server.createUserHandler: user created", "user_id", userID, "email", req.Email)
	writeJSONResponse(w, http.StatusCreated, models.Success(map[string]string{"user_id": userID}))
}

// recordVisitHandler handles POST /api/visits: the bot-guarded page-load
// endpoint.
func (s *Server) recordVisitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.recordVisitHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.recordVisitHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.guard == nil {
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Visit recorded", nil))
		return
	}

	var req models.RecordVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.recordVisitHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	verdict, err := s.guard.RecordVisit(req.ProfileID)
	if err != nil {
		slog.Error("Server.recordVisitHandler: guard failure", "error", err, "profile_id", req.ProfileID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record visit"))
		return
	}
	if verdict.Banned {
		slog.Info("Server.recordVisitHandler: visit banned", "profile_id", req.ProfileID, "ban_until", verdict.BanUntil)
		writeJSONResponse(w, http.StatusTooManyRequests, models.Banned(verdict.BanUntil))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Visit recorded", nil))
}
