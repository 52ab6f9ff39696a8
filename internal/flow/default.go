// Package flow implements the decision-tree engine behind InterviewDeck's
// chat: graph loading with cache and fallback, pure navigation lookups, and
// the per-session chat orchestrator.
package flow

import (
	"encoding/json"
	"log/slog"

	_ "embed"

	"github.com/BTreeMap/InterviewDeck/internal/models"
)

//go:embed default_flow.json
var defaultFlowJSON []byte

// DefaultGraph returns a fresh copy of the bundled default flow graph. It is
// the fallback for every load failure, so an undecodable bundle is a
// programming error and panics at startup rather than surfacing later.
func DefaultGraph() *models.FlowGraph {
	var g models.FlowGraph
	if err := json.Unmarshal(defaultFlowJSON, &g); err != nil {
		panic("flow: bundled default flow graph is undecodable: " + err.Error())
	}
	if err := g.Validate(); err != nil {
		panic("flow: bundled default flow graph is invalid: " + err.Error())
	}
	slog.Debug("DefaultGraph: bundled graph decoded", "nodes", len(g.Nodes), "options", len(g.Options))
	return &g
}
