package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BTreeMap/InterviewDeck/internal/models"
)

// Generator produces the completion preamble for a confirmed selection.
// Implementations may call out to a GenAI backend; a nil generator yields a
// deterministic local preamble.
type Generator interface {
	Preamble(ctx context.Context, categoryPath string, complexity models.Complexity) (string, error)
}

// Orchestrator drives one chat session over a flow graph: a linear
// transcript, the session state machine, and the remaining-time budget.
// All methods are safe for concurrent use; at most one generation is in
// flight per orchestrator, enforced by the processing flag under the mutex
// rather than by caller discipline.
type Orchestrator struct {
	mu sync.Mutex

	nav       *Navigator
	generator Generator

	state             models.SessionState
	currentNode       string
	pendingComplexity models.Complexity
	budget            int
	processing        bool
	transcript        []models.ChatMessage
	offered           []string
}

// SessionSnapshot is a point-in-time view of a session for API responses.
type SessionSnapshot struct {
	State           models.SessionState  `json:"state"`
	CurrentNode     string               `json:"current_node"`
	RemainingBudget int                  `json:"remaining_budget_minutes"`
	Transcript      []models.ChatMessage `json:"transcript"`
	Offered         []string             `json:"offered_options"`
}

// NewOrchestrator creates a session over nav with the given starting budget
// in minutes. The transcript is seeded with the root node's question.
func NewOrchestrator(nav *Navigator, budgetMinutes int, gen Generator) *Orchestrator {
	o := &Orchestrator{
		nav:       nav,
		generator: gen,
		budget:    budgetMinutes,
	}
	o.reset()
	return o
}

// reset returns the session to the root node. Callers hold the mutex or own
// the orchestrator exclusively (construction).
func (o *Orchestrator) reset() {
	o.state = models.StateRoot
	o.currentNode = models.RootNodeKey
	o.pendingComplexity = ""
	root, ok := o.nav.Node(models.RootNodeKey)
	if !ok {
		// Validated graphs always carry a root; an empty question node keeps
		// the session inert rather than panicking.
		slog.Error("Orchestrator.reset: graph has no root node")
		o.offered = nil
		return
	}
	o.appendAI(models.ChatMessage{
		Role:    models.RoleAI,
		Kind:    models.KindText,
		Content: root.Question,
		Options: root.Options,
	})
}

// Snapshot returns a copy of the session's current state and transcript.
func (o *Orchestrator) Snapshot() SessionSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	transcript := make([]models.ChatMessage, len(o.transcript))
	copy(transcript, o.transcript)
	offered := make([]string, len(o.offered))
	copy(offered, o.offered)
	return SessionSnapshot{
		State:           o.state,
		CurrentNode:     o.currentNode,
		RemainingBudget: o.budget,
		Transcript:      transcript,
		Offered:         offered,
	}
}

// RemainingBudget returns the session's remaining time budget in minutes.
func (o *Orchestrator) RemainingBudget() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.budget
}

// State returns the session's current state.
func (o *Orchestrator) State() models.SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SelectOption advances the session by one visitor selection. Structural
// options move to the next node; complexity options check the remaining
// budget and either offer confirmation or fall into the payment-pending
// recovery; start_over restarts from the root in any state.
func (o *Orchestrator) SelectOption(ctx context.Context, optionKey string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.processing {
		slog.Warn("Orchestrator.SelectOption: session is processing", "option", optionKey)
		return models.ErrSessionProcessing
	}

	if optionKey == models.OptionStartOver {
		slog.Debug("Orchestrator.SelectOption: start over", "from_state", o.state)
		o.echoUser(optionKey)
		o.reset()
		return nil
	}

	if !o.isOffered(optionKey) {
		slog.Warn("Orchestrator.SelectOption: option not offered", "option", optionKey, "state", o.state)
		return models.ErrInvalidOption
	}

	if optionKey == models.OptionRedeemCode {
		o.echoUser(optionKey)
		o.appendAI(models.ChatMessage{
			Role:    models.RoleAI,
			Kind:    models.KindText,
			Content: "Enter your prepaid code to add time to this session.",
			Options: []string{models.OptionStartOver},
		})
		return nil
	}

	if tier, ok := models.ParseComplexity(optionKey); ok {
		return o.selectComplexity(tier, optionKey)
	}

	node, ok := o.nav.Node(optionKey)
	if !ok {
		slog.Warn("Orchestrator.SelectOption: option has no node", "option", optionKey)
		return models.ErrInvalidOption
	}

	o.echoUser(optionKey)
	o.currentNode = optionKey
	if len(node.QuestionSets) > 0 {
		o.state = models.StateTestSelected
	} else {
		o.state = models.StateCategorySelected
	}
	o.appendAI(models.ChatMessage{
		Role:    models.RoleAI,
		Kind:    models.KindText,
		Content: node.Question,
		Options: node.Options,
	})
	slog.Debug("Orchestrator.SelectOption: advanced", "node", optionKey, "state", o.state)
	return nil
}

// selectComplexity handles a complexity option under the held mutex.
func (o *Orchestrator) selectComplexity(tier models.Complexity, optionKey string) error {
	required := models.RequiredMinutes[tier]
	o.echoUser(optionKey)
	o.pendingComplexity = tier

	if o.budget < required {
		o.state = models.StatePaymentPending
		slog.Info("Orchestrator: insufficient budget", "required", required, "remaining", o.budget, "complexity", tier)
		o.appendAI(models.ChatMessage{
			Role: models.RoleAI,
			Kind: models.KindPaymentOptions,
			Content: fmt.Sprintf(
				"This session needs %d minutes but you have %d left. Redeem a prepaid code to continue.",
				required, o.budget),
			Options:    []string{models.OptionRedeemCode, models.OptionStartOver},
			Complexity: tier,
		})
		return nil
	}

	o.state = models.StateComplexityPending
	o.appendAI(models.ChatMessage{
		Role: models.RoleAI,
		Kind: models.KindText,
		Content: fmt.Sprintf(
			"Ready to start a %s session of %s? This will use %d of your %d remaining minutes.",
			tier, o.nav.CategoryPath(o.currentNode), required, o.budget),
		Options:    []string{models.OptionConfirm, models.OptionStartOver},
		Complexity: tier,
	})
	slog.Debug("Orchestrator: complexity pending confirmation", "complexity", tier, "required", required)
	return nil
}

// RedeemCode redeems a prepaid code from the payment-pending state. Code
// shape is validated by the caller; redemption itself always succeeds and
// credits a fixed number of minutes, then sufficiency is re-evaluated.
func (o *Orchestrator) RedeemCode(ctx context.Context, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.processing {
		return models.ErrSessionProcessing
	}
	if o.state != models.StatePaymentPending {
		slog.Warn("Orchestrator.RedeemCode: no payment pending", "state", o.state)
		return models.ErrNoPaymentPending
	}

	o.budget += models.PrepaidCodeMinutes
	slog.Info("Orchestrator.RedeemCode: code redeemed", "credited", models.PrepaidCodeMinutes, "remaining", o.budget)
	o.transcript = append(o.transcript, models.ChatMessage{
		Role:    models.RoleUser,
		Kind:    models.KindText,
		Content: "Redeemed a prepaid code",
	})

	tier := o.pendingComplexity
	required := models.RequiredMinutes[tier]
	if o.budget < required {
		o.appendAI(models.ChatMessage{
			Role: models.RoleAI,
			Kind: models.KindPaymentOptions,
			Content: fmt.Sprintf(
				"Added %d minutes. This session needs %d minutes but you have %d left.",
				models.PrepaidCodeMinutes, required, o.budget),
			Options:    []string{models.OptionRedeemCode, models.OptionStartOver},
			Complexity: tier,
		})
		return nil
	}

	o.state = models.StateComplexityPending
	o.appendAI(models.ChatMessage{
		Role: models.RoleAI,
		Kind: models.KindText,
		Content: fmt.Sprintf(
			"Added %d minutes. Ready to start your %s session? This will use %d of your %d remaining minutes.",
			models.PrepaidCodeMinutes, tier, required, o.budget),
		Options:    []string{models.OptionConfirm, models.OptionStartOver},
		Complexity: tier,
	})
	return nil
}

// Confirm deducts the pending complexity's time cost and runs the generation
// step. The deduction happens before generation begins and is not refunded
// on failure.
func (o *Orchestrator) Confirm(ctx context.Context) error {
	o.mu.Lock()
	if o.processing {
		o.mu.Unlock()
		return models.ErrSessionProcessing
	}
	if o.state != models.StateComplexityPending {
		o.mu.Unlock()
		slog.Warn("Orchestrator.Confirm: nothing to confirm", "state", o.state)
		return models.ErrNotAwaitingConfirm
	}

	tier := o.pendingComplexity
	required := models.RequiredMinutes[tier]
	o.budget -= required
	o.state = models.StateComplexityConfirmed
	o.echoUser(models.OptionConfirm)
	slog.Info("Orchestrator.Confirm: budget deducted", "deducted", required, "remaining", o.budget, "complexity", tier)

	nodeKey := o.currentNode
	o.state = models.StateGenerating
	o.processing = true
	o.mu.Unlock()

	categoryPath := o.nav.CategoryPath(nodeKey)
	questionSetID, found := o.nav.QuestionSetID(nodeKey, string(tier))

	var preamble string
	var genErr error
	if found {
		preamble, genErr = o.preamble(ctx, categoryPath, tier)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.processing = false

	if !found {
		slog.Error("Orchestrator.Confirm: no question set resolvable", "node", nodeKey, "complexity", tier)
		o.state = models.StateCompleted
		o.appendAI(models.ChatMessage{
			Role:    models.RoleAI,
			Kind:    models.KindText,
			Content: "Something went wrong preparing your session. Your selection could not be matched to a question set.",
			Options: []string{models.OptionStartOver},
		})
		return models.ErrNoQuestionSet
	}
	if genErr != nil {
		slog.Error("Orchestrator.Confirm: generation failed", "error", genErr, "node", nodeKey)
		o.state = models.StateCompleted
		o.appendAI(models.ChatMessage{
			Role:    models.RoleAI,
			Kind:    models.KindText,
			Content: "Something went wrong generating your session. Please start over.",
			Options: []string{models.OptionStartOver},
		})
		return fmt.Errorf("generation failed: %w", genErr)
	}

	o.state = models.StateCompleted
	o.appendAI(models.ChatMessage{
		Role:          models.RoleAI,
		Kind:          models.KindGeneration,
		Content:       preamble,
		Options:       []string{models.OptionStartOver},
		Complexity:    tier,
		Category:      categoryPath,
		QuestionSetID: questionSetID,
	})
	slog.Info("Orchestrator.Confirm: session prepared", "question_set", questionSetID, "category", categoryPath, "complexity", tier)
	return nil
}

// preamble produces the completion message body, via the configured
// generator when one is present.
func (o *Orchestrator) preamble(ctx context.Context, categoryPath string, tier models.Complexity) (string, error) {
	if o.generator == nil {
		return fmt.Sprintf("Your %s practice interview for %s is ready.", tier, categoryPath), nil
	}
	return o.generator.Preamble(ctx, categoryPath, tier)
}

// echoUser appends the visitor's selection to the transcript, resolving the
// option's display text where the graph has one.
func (o *Orchestrator) echoUser(optionKey string) {
	content := optionKey
	if text, ok := o.nav.OptionText(optionKey); ok {
		content = text
	} else if optionKey == models.OptionConfirm {
		content = "Confirm"
	}
	o.transcript = append(o.transcript, models.ChatMessage{
		Role:    models.RoleUser,
		Kind:    models.KindText,
		Content: content,
	})
}

// appendAI appends an assistant message and records its options as the
// currently actionable set.
func (o *Orchestrator) appendAI(msg models.ChatMessage) {
	o.transcript = append(o.transcript, msg)
	o.offered = msg.Options
}

// isOffered reports whether optionKey is in the currently actionable set.
func (o *Orchestrator) isOffered(optionKey string) bool {
	for _, k := range o.offered {
		if k == optionKey {
			return true
		}
	}
	return false
}
