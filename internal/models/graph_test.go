package models

import (
	"strings"
	"testing"
)

func validGraph() *FlowGraph {
	return &FlowGraph{
		Nodes: map[string]Node{
			RootNodeKey: {Question: "Pick one", Options: []string{"frontend"}},
			"frontend":  {Question: "Which topic?", Options: []string{}, DisplayText: "Frontend", ParentKey: RootNodeKey},
		},
		Options: map[string]Option{
			"frontend": {Text: "Frontend"},
		},
	}
}

func TestFlowGraphValidate(t *testing.T) {
	if err := validGraph().Validate(); err != nil {
		t.Fatalf("valid graph rejected: %v", err)
	}

	g := validGraph()
	delete(g.Nodes, RootNodeKey)
	if err := g.Validate(); err == nil || !strings.Contains(err.Error(), "root") {
		t.Errorf("expected missing-root error, got %v", err)
	}

	g = validGraph()
	node := g.Nodes[RootNodeKey]
	node.Options = append(node.Options, "dangling")
	g.Nodes[RootNodeKey] = node
	if err := g.Validate(); err == nil || !strings.Contains(err.Error(), "unknown option") {
		t.Errorf("expected dangling-option error, got %v", err)
	}

	g = validGraph()
	node = g.Nodes["frontend"]
	node.ParentKey = "nowhere"
	g.Nodes["frontend"] = node
	if err := g.Validate(); err == nil || !strings.Contains(err.Error(), "unknown parent") {
		t.Errorf("expected dangling-parent error, got %v", err)
	}
}

func TestCompanyRegistryEntry(t *testing.T) {
	reg := &CompanyRegistry{
		Companies: map[string]CompanyEntry{
			DefaultCompanyID: {DisplayName: "Practice Interview"},
			"acme":           {DisplayName: "Acme"},
		},
		DefaultID: DefaultCompanyID,
	}

	if e, ok := reg.Entry("acme"); !ok || e.DisplayName != "Acme" {
		t.Errorf("unexpected entry %+v (found=%v)", e, ok)
	}
	// Unknown identifiers fall back to the default entry.
	if e, ok := reg.Entry("nobody"); ok || e.DisplayName != "Practice Interview" {
		t.Errorf("expected default fallback, got %+v (found=%v)", e, ok)
	}
	if e, ok := reg.Entry(""); ok || e.DisplayName != "Practice Interview" {
		t.Errorf("expected default fallback for empty id, got %+v (found=%v)", e, ok)
	}
}
