package discovery

import (
	"encoding/json"
	"testing"

	"github.com/revittco/toolrt/internal/runspec"
)

func sampleTools() map[string]runspec.ToolDefinition {
	return map[string]runspec.ToolDefinition{
		"widgets.get_widget": {
			Path: "widgets.get_widget", PreferredPath: "widgets.get_widget",
			Description: "Fetch a single widget by id",
			Typing:      runspec.Typing{InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`)},
		},
		"widgets.list_widgets": {
			Path: "widgets.list_widgets", PreferredPath: "widgets.list_widgets",
			Description: "List all widgets",
		},
		"gadgets.get_gadget": {
			Path: "gadgets.get_gadget", PreferredPath: "gadgets.get_gadget",
			Description: "Fetch a single gadget by id",
		},
	}
}

func TestSearch_NamespaceHintBoostsMatchingNamespace(t *testing.T) {
	idx := Build(sampleTools())
	result := idx.Search("widgets get", "", 10)
	if len(result.Results) == 0 {
		t.Fatalf("expected results")
	}
	if result.Results[0].Entry.Path != "widgets.get_widget" {
		t.Errorf("top result = %s, want widgets.get_widget", result.Results[0].Entry.Path)
	}
}

func TestSearch_EmptyQueryReturnsEmptyResult(t *testing.T) {
	idx := Build(sampleTools())
	result := idx.Search("", "", 10)
	if result.BestPath != nil || len(result.Results) != 0 || result.Total != 0 {
		t.Errorf("expected empty result for empty query, got %+v", result)
	}
}

func TestSearch_NamespaceScoping(t *testing.T) {
	idx := Build(sampleTools())
	result := idx.Search("get", "gadgets", 10)
	for _, r := range result.Results {
		if namespaceOf(r.Entry.Path) != "gadgets" {
			t.Errorf("result %s leaked outside gadgets namespace", r.Entry.Path)
		}
	}
}

func TestBestPath_RequiresMarginOverRunnerUp(t *testing.T) {
	ranked := []scored{{entry: Entry{Path: "a"}, score: 5}, {entry: Entry{Path: "b"}, score: 4}}
	if got := bestPath(ranked, 2); got != nil {
		t.Errorf("expected nil bestPath when margin < 2, got %v", *got)
	}

	ranked2 := []scored{{entry: Entry{Path: "a"}, score: 6}, {entry: Entry{Path: "b"}, score: 2}}
	if got := bestPath(ranked2, 2); got == nil || *got != "a" {
		t.Errorf("expected bestPath = a, got %v", got)
	}
}

func TestNamespacesAndToolsByNamespace(t *testing.T) {
	idx := Build(sampleTools())
	ns := idx.Namespaces()
	if len(ns) != 2 || ns[0] != "gadgets" || ns[1] != "widgets" {
		t.Errorf("unexpected namespaces: %v", ns)
	}
	tools := idx.ToolsByNamespace("widgets")
	if len(tools) != 2 {
		t.Errorf("expected 2 widgets tools, got %v", tools)
	}
}
