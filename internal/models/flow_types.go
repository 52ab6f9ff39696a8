// Package models defines shared type aliases for InterviewDeck flows.
package models

import "strings"

// Complexity represents a difficulty tier for a practice interview.
type Complexity string

const (
	// ComplexityEasy is the lowest difficulty tier.
	ComplexityEasy Complexity = "easy"
	// ComplexityMedium is the middle difficulty tier.
	ComplexityMedium Complexity = "medium"
	// ComplexityAdvanced is the highest difficulty tier.
	ComplexityAdvanced Complexity = "advanced"
)

// SessionState represents a state in the chat orchestrator state machine.
type SessionState string

// State constants for the chat session flow.
const (
	StateRoot                SessionState = "ROOT"
	StateCategorySelected    SessionState = "CATEGORY_SELECTED"
	StateTestSelected        SessionState = "TEST_SELECTED"
	StateComplexityPending   SessionState = "COMPLEXITY_PENDING"
	StatePaymentPending      SessionState = "PAYMENT_PENDING"
	StateComplexityConfirmed SessionState = "COMPLEXITY_CONFIRMED"
	StateGenerating          SessionState = "GENERATING"
	StateCompleted           SessionState = "COMPLETED"
)

// MessageRole identifies the author of a transcript message.
type MessageRole string

const (
	// RoleAI marks messages produced by the assistant side of the chat.
	RoleAI MessageRole = "ai"
	// RoleUser marks messages echoing a visitor selection or input.
	RoleUser MessageRole = "user"
)

// MessageKind identifies the rendering kind of a transcript message.
type MessageKind string

const (
	// KindText is a plain text transcript message.
	KindText MessageKind = "text"
	// KindGeneration marks the completion message carrying generation output.
	KindGeneration MessageKind = "image-generation"
	// KindPaymentOptions marks a message offering prepaid-code recovery.
	KindPaymentOptions MessageKind = "payment-options"
)

// Option keys that do not advance to a graph node.
const (
	// OptionStartOver restarts the chat session from the root node.
	OptionStartOver = "start_over"
	// OptionRedeemCode redeems a prepaid code from the payment-options state.
	OptionRedeemCode = "redeem_code"
	// OptionConfirm confirms a pending complexity selection.
	OptionConfirm = "confirm"
)

// RequiredMinutes is the fixed time cost per complexity tier.
var RequiredMinutes = map[Complexity]int{
	ComplexityEasy:     15,
	ComplexityMedium:   30,
	ComplexityAdvanced: 45,
}

// DefaultSessionBudgetMinutes is the remaining-time budget a fresh chat
// session starts with.
const DefaultSessionBudgetMinutes = 60

// PrepaidCodeMinutes is the fixed credit granted by a redeemed prepaid code.
const PrepaidCodeMinutes = 30

// ParseComplexity maps a complexity label to its canonical tier.
// Matching is case-insensitive; "Hard" is accepted as an alias for the
// advanced tier. Returns false for anything else.
func ParseComplexity(s string) (Complexity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ComplexityEasy):
		return ComplexityEasy, true
	case string(ComplexityMedium):
		return ComplexityMedium, true
	case string(ComplexityAdvanced), "hard":
		return ComplexityAdvanced, true
	default:
		return "", false
	}
}
