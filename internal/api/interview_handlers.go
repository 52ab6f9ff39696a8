package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/InterviewDeck/internal/models"
)

// maxRecordingBytes caps recording uploads.
const maxRecordingBytes = 256 << 20

// createInterviewHandler handles POST /api/interviews.
func (s *Server) createInterviewHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.createInterviewHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.createInterviewHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.interviews == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Interview sessions are not configured"))
		return
	}

	var req models.CreateInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createInterviewHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	snap, err := s.interviews.Create(r.Context(), req.QuestionSetID)
	if err != nil {
		slog.Warn("Server.createInterviewHandler: create failed", "error", err, "question_set_id", req.QuestionSetID)
		// Missing or empty question sets are a client-visible condition, not
		// a server fault.
		writeJSONResponse(w, http.StatusUnprocessableEntity, models.Error(err.Error()))
		return
	}
	slog.Info("Server.createInterviewHandler: interview created", "interview_id", snap.ID, "question_set_id", req.QuestionSetID)
	writeJSONResponse(w, http.StatusCreated, models.Success(snap))
}

// interviewHandler routes /api/interviews/{id}[/{action}].
func (s *Server) interviewHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if s.interviews == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Interview sessions are not configured"))
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/interviews/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing interview ID"))
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			snap, err := s.interviews.Snapshot(id)
			if err != nil {
				writeJSONResponse(w, http.StatusNotFound, models.Error("Interview not found"))
				return
			}
			writeJSONResponse(w, http.StatusOK, models.Success(snap))
		case http.MethodDelete:
			s.closeInterview(w, id)
		default:
			w.Header().Set("Allow", "GET, DELETE")
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "start":
		s.startInterviewHandler(w, r, id)
	case "recording":
		s.attachRecordingHandler(w, r, id)
	case "complete":
		s.completeInterviewHandler(w, r, id)
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown interview action"))
	}
}

// startInterviewHandler handles POST /api/interviews/{id}/start.
func (s *Server) startInterviewHandler(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snap, err := s.interviews.Start(r.Context(), id)
	if err != nil {
		slog.Warn("Server.startInterviewHandler: start failed", "error", err, "interview_id", id)
		writeJSONResponse(w, statusForInterviewError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(snap))
}

// attachRecordingHandler handles POST /api/interviews/{id}/recording. The
// request body is the raw recording blob.
func (s *Server) attachRecordingHandler(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxRecordingBytes)
	if err := s.interviews.AttachRecording(r.Context(), id, body); err != nil {
		slog.Warn("Server.attachRecordingHandler: attach failed", "error", err, "interview_id", id)
		writeJSONResponse(w, statusForInterviewError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Recording attached", nil))
}

// completeInterviewHandler handles POST /api/interviews/{id}/complete.
func (s *Server) completeInterviewHandler(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rec, err := s.interviews.Complete(r.Context(), id)
	if err != nil {
		slog.Warn("Server.completeInterviewHandler: completion failed", "error", err, "interview_id", id)
		writeJSONResponse(w, statusForInterviewError(err), models.Error(err.Error()))
		return
	}
	slog.Info("Server.completeInterviewHandler: interview completed", "interview_id", id, "storage_ref", rec.StorageRef)
	writeJSONResponse(w, http.StatusOK, models.Success(rec))
}

// closeInterview tears a session down, reporting whether an active interview
// was interrupted.
func (s *Server) closeInterview(w http.ResponseWriter, id string) {
	interrupted, err := s.interviews.Close(id)
	if err != nil {
		writeJSONResponse(w, statusForInterviewError(err), models.Error(err.Error()))
		return
	}
	if interrupted {
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Interview closed mid-recording", map[string]bool{"interrupted": true}))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Interview closed", map[string]bool{"interrupted": false}))
}

// statusForInterviewError maps interview manager errors onto HTTP status codes.
func statusForInterviewError(err error) int {
	switch {
	case errors.Is(err, models.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInterviewNotStarted), errors.Is(err, models.ErrInterviewFinished):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
