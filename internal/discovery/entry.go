// Package discovery implements the Discovery Indexer (spec.md §4.5):
// per-tool searchable entries, a namespace+intent-aware ranking
// algorithm, and the discover/catalog.* built-in tools that serve
// queries against a live registry. Grounded almost directly on the
// teacher's internal/gateway/search.go, which already implements
// keyword search, scoring, and namespace-aware filtering over a tool
// list — generalized here to the spec's exact ranking formula
// (namespace-hint bonus/penalty, intent-phrase substring bonus,
// ceil(terms/2) rejection, best-path margin rule).
package discovery

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/revittco/toolrt/internal/runspec"
)

// Entry is one tool's searchable projection (spec.md §4.5 "Build
// per-tool entries with {path, preferredPath, aliases,
// displayInputHint, displayOutputHint, previewInputKeys,
// requiredInputKeys, refHints, searchText, normalizedPath,
// normalizedSearchText}").
type Entry struct {
	Path                 string
	PreferredPath        string
	Aliases              []string
	DisplayInputHint     string
	DisplayOutputHint    string
	PreviewInputKeys     []string
	RequiredInputKeys    []string
	RefHints             []string
	SearchText           string
	NormalizedPath       string
	NormalizedSearchText string
}

const maxPreviewKeys = 5

var refNamePattern = regexp.MustCompile(`"\$ref"\s*:\s*"[^"]*/([A-Za-z0-9_]+)"`)

// BuildEntry projects a live ToolDefinition into its searchable Entry.
func BuildEntry(t runspec.ToolDefinition) Entry {
	aliases := buildAliases(t.Path, t.PreferredPath)
	searchText := buildSearchText(t, aliases)

	preview, required := schemaKeys(t.Typing.InputSchema)
	if len(preview) > maxPreviewKeys {
		preview = preview[:maxPreviewKeys]
	}

	return Entry{
		Path:                 t.Path,
		PreferredPath:        t.PreferredPath,
		Aliases:              aliases,
		DisplayInputHint:     t.Typing.InputHint,
		DisplayOutputHint:    t.Typing.OutputHint,
		PreviewInputKeys:     preview,
		RequiredInputKeys:    required,
		RefHints:             refNames(t.Typing.InputSchema, t.Typing.OutputSchema),
		SearchText:           searchText,
		NormalizedPath:       normalize(t.Path),
		NormalizedSearchText: normalize(searchText),
	}
}

// buildAliases generates camelCase and compact variants of a tool's
// final path segment, plus the collapsed preferred path itself (spec.md
// §4.5 "aliases include camelCase and compact forms").
func buildAliases(path, preferredPath string) []string {
	set := map[string]bool{}
	if preferredPath != "" && preferredPath != path {
		set[preferredPath] = true
	}

	segments := strings.Split(path, ".")
	last := segments[len(segments)-1]
	set[toCamelCase(last)] = true
	set[strings.ReplaceAll(last, "_", "")] = true

	aliases := make([]string, 0, len(set))
	for a := range set {
		if a != "" {
			aliases = append(aliases, a)
		}
	}
	sort.Strings(aliases)
	return aliases
}

func toCamelCase(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// buildSearchText expands namespace separators and underscores into
// spaces so token queries like "widget get" match "widgets.get_widget"
// (teacher's buildSearchText in internal/gateway/search.go, generalized
// from "__" MCP-style separators to dotted tool paths).
func buildSearchText(t runspec.ToolDefinition, aliases []string) string {
	nameLower := strings.ToLower(t.Path)
	descLower := strings.ToLower(t.Description)
	expanded := strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(nameLower)

	var b strings.Builder
	b.WriteString(nameLower)
	b.WriteByte(' ')
	b.WriteString(expanded)
	b.WriteByte(' ')
	b.WriteString(descLower)
	for _, a := range aliases {
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(a))
	}
	return b.String()
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// normalize lowercases and strips non-alphanumerics, collapsing runs to
// single separators — used for both normalizedPath/normalizedSearchText
// and the query's intent phrase so substring comparisons are exact.
func normalize(s string) string {
	return strings.Trim(nonAlphanumeric.ReplaceAllString(strings.ToLower(s), " "), " ")
}

func schemaKeys(schema json.RawMessage) (preview []string, required []string) {
	if len(schema) == 0 {
		return nil, nil
	}
	var s struct {
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	if err := json.Unmarshal(schema, &s); err != nil {
		return nil, nil
	}
	keys := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sort.Strings(s.Required)
	return keys, s.Required
}

func refNames(schemas ...json.RawMessage) []string {
	seen := map[string]bool{}
	var out []string
	for _, schema := range schemas {
		for _, m := range refNamePattern.FindAllStringSubmatch(string(schema), -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	sort.Strings(out)
	return out
}
