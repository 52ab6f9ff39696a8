// Package models defines the core data structures for InterviewDeck.
//
// It includes chat transcript messages, request payloads, and the shared API
// response envelope used across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Validation constants for input validation
const (
	// MaxFullNameLength defines the maximum allowed length for a user's full name
	MaxFullNameLength = 200
	// MinPrepaidCodeLength defines the minimum length of a well-formed prepaid code
	MinPrepaidCodeLength = 8
	// MaxPrepaidCodeLength defines the maximum length of a well-formed prepaid code
	MaxPrepaidCodeLength = 64
)

// Error variables for better error handling and testability
var (
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrInvalidEmail        = errors.New("email is not valid")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrFullNameTooLong     = errors.New("full name exceeds maximum length")
	ErrInvalidRole         = errors.New("invalid role")
	ErrEmptyOption         = errors.New("option cannot be empty")
	ErrInvalidOption       = errors.New("option is not available right now")
	ErrNotAwaitingConfirm  = errors.New("no complexity selection awaiting confirmation")
	ErrNoPaymentPending    = errors.New("no payment is pending for this session")
	ErrEmptyQuestionSetID  = errors.New("question set id cannot be empty")
	ErrEmptyProfileID      = errors.New("profile id cannot be empty")
	ErrMalformedCode       = errors.New("prepaid code is malformed")
	ErrNegativeBudget      = errors.New("budget cannot be negative")
	ErrUnknownSession      = errors.New("session not found")
	ErrSessionProcessing   = errors.New("session is processing a previous selection")
	ErrNoQuestionSet       = errors.New("no question set resolvable for selection")
	ErrNoQuestions         = errors.New("question set has no questions")
	ErrInterviewNotStarted = errors.New("interview has not been started")
	ErrInterviewFinished   = errors.New("interview is already finished")
)

// Role identifies the profile role created by the admin path.
type Role string

const (
	// RoleCandidate is the default profile role for created accounts.
	RoleCandidate Role = "candidate"
	// RoleAdmin marks administrative accounts.
	RoleAdmin Role = "admin"
)

// IsValidRole checks if the given profile role is supported.
func IsValidRole(r Role) bool {
	switch r {
	case RoleCandidate, RoleAdmin:
		return true
	default:
		return false
	}
}

// ChatMessage is one entry in a chat session transcript. Transcripts are
// session-local: ordered for the lifetime of one session and never persisted.
type ChatMessage struct {
	Role          MessageRole `json:"role"`
	Content       string      `json:"content"`
	Kind          MessageKind `json:"kind,omitempty"`
	Options       []string    `json:"options,omitempty"`
	Complexity    Complexity  `json:"complexity,omitempty"`
	Category      string      `json:"category,omitempty"`
	QuestionSetID string      `json:"question_set_id,omitempty"`
}

// QuestionSet is a named collection of interview questions plus a time limit,
// loaded from a per-question-set JSON document.
type QuestionSet struct {
	ID               string   `json:"id"`
	Questions        []string `json:"questions"`
	TimeLimitSeconds int      `json:"time_limit_seconds"`
}

// Recording references a finalized interview recording.
type Recording struct {
	SessionID  string    `json:"session_id"`
	StorageRef string    `json:"storage_ref"`
	SizeBytes  int64     `json:"size_bytes"`
	Expired    bool      `json:"expired"`
	RecordedAt time.Time `json:"recorded_at"`
}

// CreateUserRequest is the payload for the admin account-creation path.
type CreateUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FullName  string `json:"full_name,omitempty"`
	Role      Role   `json:"role,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	Phone     string `json:"phone,omitempty"` // optional, triggers SMS welcome when set
}

// Validate performs validation on a CreateUserRequest.
func (r *CreateUserRequest) Validate() error {
	if r.Email == "" {
		return ErrEmptyEmail
	}
	if !strings.Contains(r.Email, "@") || strings.ContainsAny(r.Email, " \t") {
		return ErrInvalidEmail
	}
	if r.Password == "" {
		return ErrEmptyPassword
	}
	if len(r.FullName) > MaxFullNameLength {
		return ErrFullNameTooLong
	}
	if r.Role != "" && !IsValidRole(r.Role) {
		return ErrInvalidRole
	}
	return nil
}

// SelectOptionRequest is the payload for advancing a chat session.
type SelectOptionRequest struct {
	Option string `json:"option"`
}

// Validate performs validation on a SelectOptionRequest.
func (r *SelectOptionRequest) Validate() error {
	if strings.TrimSpace(r.Option) == "" {
		return ErrEmptyOption
	}
	return nil
}

// RedeemCodeRequest is the payload for redeeming a prepaid code.
type RedeemCodeRequest struct {
	Code string `json:"code"`
}

// Validate checks the prepaid code shape. Codes are upper-case alphanumeric
// with optional dashes; redemption itself always succeeds for a well-formed
// code.
func (r *RedeemCodeRequest) Validate() error {
	code := strings.TrimSpace(r.Code)
	if len(code) < MinPrepaidCodeLength || len(code) > MaxPrepaidCodeLength {
		return ErrMalformedCode
	}
	for _, c := range code {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return ErrMalformedCode
		}
	}
	return nil
}

// CreateChatSessionRequest is the payload for opening a chat session.
type CreateChatSessionRequest struct {
	CompanyID     string `json:"company_id,omitempty"`
	BudgetMinutes *int   `json:"budget_minutes,omitempty"` // defaults to DefaultSessionBudgetMinutes
}

// Validate performs validation on a CreateChatSessionRequest.
func (r *CreateChatSessionRequest) Validate() error {
	if r.BudgetMinutes != nil && *r.BudgetMinutes < 0 {
		return ErrNegativeBudget
	}
	return nil
}

// CreateInterviewRequest is the payload for opening an interview capture
// session.
type CreateInterviewRequest struct {
	QuestionSetID string `json:"question_set_id"`
}

// Validate performs validation on a CreateInterviewRequest.
func (r *CreateInterviewRequest) Validate() error {
	if strings.TrimSpace(r.QuestionSetID) == "" {
		return ErrEmptyQuestionSetID
	}
	return nil
}

// RecordVisitRequest is the payload for the bot-guarded visit endpoint.
type RecordVisitRequest struct {
	ProfileID string `json:"profile_id"`
}

// Validate performs validation on a RecordVisitRequest.
func (r *RecordVisitRequest) Validate() error {
	if strings.TrimSpace(r.ProfileID) == "" {
		return ErrEmptyProfileID
	}
	return nil
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusBanned indicates the caller is throttled by the bot guard.
	APIStatusBanned APIStatus = "banned"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}

// Banned creates a bot-guard throttle response with the ban expiry.
func Banned(until time.Time) APIResponse {
	return APIResponse{
		Status:  string(APIStatusBanned),
		Message: "too many visits, try again later",
		Result:  map[string]interface{}{"banned_until": until},
	}
}
