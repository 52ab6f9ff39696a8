package flow

import (
	"log/slog"
	"strings"

	"github.com/BTreeMap/InterviewDeck/internal/models"
)

// CategoryPathSeparator joins breadcrumb segments in composed category paths.
const CategoryPathSeparator = " > "

// Navigator provides pure lookups over one flow graph. It holds no mutable
// state; orchestrators own their graph reference for the session lifetime,
// so a newer load for another company can never swap a session's graph out
// from under it.
type Navigator struct {
	graph *models.FlowGraph
}

// NewNavigator creates a navigator over g.
func NewNavigator(g *models.FlowGraph) *Navigator {
	return &Navigator{graph: g}
}

// Graph returns the underlying flow graph.
func (n *Navigator) Graph() *models.FlowGraph {
	return n.graph
}

// Node returns the node for key. Absence is reported, never a panic.
func (n *Navigator) Node(key string) (models.Node, bool) {
	node, ok := n.graph.Nodes[key]
	return node, ok
}

// OptionText returns the display text for an option key.
func (n *Navigator) OptionText(key string) (string, bool) {
	opt, ok := n.graph.Options[key]
	if !ok {
		return "", false
	}
	return opt.Text, true
}

// QuestionSetID resolves the first question-set identifier for the given
// complexity at nodeKey. Complexity matching is case-insensitive ("Easy" and
// "easy" resolve identically). Resolution is strictly by node key: first the
// node's own question sets, then the graph-level direct index kept for
// graphs rehydrated from older cache entries. Returns ("", false) when no
// path yields an identifier; callers must treat that as "cannot proceed".
func (n *Navigator) QuestionSetID(nodeKey, complexity string) (string, bool) {
	tier, ok := models.ParseComplexity(complexity)
	if !ok {
		slog.Debug("Navigator.QuestionSetID: unknown complexity", "complexity", complexity, "node", nodeKey)
		return "", false
	}

	if node, ok := n.graph.Nodes[nodeKey]; ok {
		if ids := node.QuestionSets[tier]; len(ids) > 0 {
			return ids[0], true
		}
	}
	if idx := n.graph.QuestionSetIndex[nodeKey]; idx != nil {
		if ids := idx[tier]; len(ids) > 0 {
			return ids[0], true
		}
	}

	slog.Debug("Navigator.QuestionSetID: no identifier resolvable", "node", nodeKey, "complexity", tier)
	return "", false
}

// CategoryPath composes the breadcrumb for nodeKey by walking parent keys up
// to the root, joining display texts with " > ". The result doubles as the
// display label and the generation prompt. The walk is guarded against
// cycles, which no loader constructs but nothing structurally forbids.
func (n *Navigator) CategoryPath(nodeKey string) string {
	var segments []string
	visited := make(map[string]bool)

	key := nodeKey
	for key != "" && !visited[key] {
		visited[key] = true
		node, ok := n.graph.Nodes[key]
		if !ok {
			break
		}
		if node.DisplayText != "" {
			segments = append(segments, node.DisplayText)
		}
		key = node.ParentKey
	}

	// Walked leaf-to-root; breadcrumbs read root-to-leaf.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, CategoryPathSeparator)
}
