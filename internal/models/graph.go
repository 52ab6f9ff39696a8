// Package models defines the decision-tree graph structures for InterviewDeck.
package models

import (
	"fmt"
	"time"
)

// RootNodeKey is the key of the entry node in every flow graph.
const RootNodeKey = "root"

// Node is a single question node in a flow graph. Options is the ordered
// sequence of option keys offered at this node; for structural options the
// option key doubles as the key of the node the selection advances to.
type Node struct {
	Question     string                  `json:"question"`
	Options      []string                `json:"options"`
	DisplayText  string                  `json:"display_text,omitempty"`
	ParentKey    string                  `json:"parent_key,omitempty"`
	QuestionSets map[Complexity][]string `json:"question_sets,omitempty"`
}

// Option is the display record for an option key.
type Option struct {
	Text string `json:"text"`
}

// GraphMetadata describes the provenance of a flow graph.
type GraphMetadata struct {
	CompanyID   string    `json:"company_id"`
	LastUpdated time.Time `json:"last_updated"`
	Version     int       `json:"version"`
}

// FlowGraph is the decision tree driving a chat session. Graphs are built
// fresh by the loader and replaced wholesale, never mutated in place.
type FlowGraph struct {
	Nodes    map[string]Node   `json:"nodes"`
	Options  map[string]Option `json:"options"`
	Metadata GraphMetadata     `json:"metadata"`
	// QuestionSetIndex is a direct node-key index kept as a fallback for
	// graphs rehydrated from older cache entries that predate per-node
	// question sets.
	QuestionSetIndex map[string]map[Complexity][]string `json:"question_set_index,omitempty"`
}

// Validate checks graph referential integrity: every option key referenced by
// a node must exist in Options, every parent key must resolve to an existing
// node, and the root node must be present. Dangling references are rejected
// at load time instead of surfacing as missing lookups later.
func (g *FlowGraph) Validate() error {
	if _, ok := g.Nodes[RootNodeKey]; !ok {
		return fmt.Errorf("flow graph has no %q node", RootNodeKey)
	}
	for key, node := range g.Nodes {
		for _, opt := range node.Options {
			if _, ok := g.Options[opt]; !ok {
				return fmt.Errorf("node %q references unknown option %q", key, opt)
			}
		}
		if node.ParentKey != "" {
			if _, ok := g.Nodes[node.ParentKey]; !ok {
				return fmt.Errorf("node %q references unknown parent %q", key, node.ParentKey)
			}
		}
	}
	return nil
}
