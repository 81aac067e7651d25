package discovery

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/revittco/toolrt/internal/runspec"
)

func TestBuildEntry_AliasesAndSearchText(t *testing.T) {
	tool := runspec.ToolDefinition{
		Path:          "widgets.get_widget",
		PreferredPath: "widgets.getWidget",
		Description:   "Fetch a single widget by id",
		Typing: runspec.Typing{
			InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"},"verbose":{"type":"boolean"}},"required":["id"]}`),
			InputHint:   "{ id: string }",
		},
	}
	entry := BuildEntry(tool)

	found := map[string]bool{}
	for _, a := range entry.Aliases {
		found[a] = true
	}
	if !found["getWidget"] {
		t.Errorf("expected camelCase alias getWidget, got %v", entry.Aliases)
	}
	if !found["widgets.getWidget"] {
		t.Errorf("expected preferredPath alias, got %v", entry.Aliases)
	}

	if !strings.Contains(entry.SearchText, "widgets.get_widget") {
		t.Errorf("searchText should contain the raw path, got %q", entry.SearchText)
	}
	if !strings.Contains(entry.NormalizedSearchText, "widget") {
		t.Errorf("normalizedSearchText should contain widget, got %q", entry.NormalizedSearchText)
	}
	if len(entry.RequiredInputKeys) != 1 || entry.RequiredInputKeys[0] != "id" {
		t.Errorf("expected required=[id], got %v", entry.RequiredInputKeys)
	}
	if len(entry.PreviewInputKeys) != 2 {
		t.Errorf("expected 2 preview keys, got %v", entry.PreviewInputKeys)
	}
}

func TestBuildEntry_RefHintsExtractedFromSchema(t *testing.T) {
	tool := runspec.ToolDefinition{
		Path: "things.create_thing",
		Typing: runspec.Typing{
			InputSchema: json.RawMessage(`{"properties":{"thing":{"$ref":"#/components/schemas/Thing"}}}`),
		},
	}
	entry := BuildEntry(tool)
	if len(entry.RefHints) != 1 || entry.RefHints[0] != "Thing" {
		t.Errorf("expected refHints=[Thing], got %v", entry.RefHints)
	}
}

func TestNormalize_StripsPunctuationAndCollapses(t *testing.T) {
	got := normalize("Get-Widget__By.ID!!")
	want := "get widget by id"
	if got != want {
		t.Errorf("normalize() = %q, want %q", got, want)
	}
}
