package toolpath

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Display-hint generation bounds (spec.md §4.1, §9 "bounded depth 12,
// bounded property width 12 with `[key: string]: any` truncation
// marker, cycle-safe"). Grounded on the teacher's
// internal/gateway/schema.go minifySchema/minifyProperties recursion,
// generalized from "strip noise keys" to "render a compact type string".
const (
	maxHintDepth = 12
	maxHintWidth = 12
)

// RefHintTable maps OpenAPI component schema names to short rendered
// signatures (spec.md GLOSSARY "Ref-hint table"), consulted when a
// schema is too large to inline or a cycle is detected.
type RefHintTable map[string]string

// DisplayHint renders a JSON Schema (as decoded generic JSON) into a
// compact single-line type string, e.g. "{ id: string, tags: string[] }".
// It never returns an error: unparseable input degrades to "any".
func DisplayHint(schema json.RawMessage, refs RefHintTable) string {
	if len(schema) == 0 {
		return "any"
	}
	var node any
	if err := json.Unmarshal(schema, &node); err != nil {
		return "any"
	}
	h := &hinter{refs: refs, visited: map[string]bool{}}
	return h.render(node, 0)
}

// VoidHint is the fixed outputHint for operations whose response is a
// 204/205 with no body (spec.md §8 "OpenAPI 204 output").
const VoidHint = "void"

// EmptyObjectHint is the fixed inputHint for a tool with no required
// keys and empty properties (spec.md §8 boundary behaviors).
const EmptyObjectHint = "{}"

type hinter struct {
	refs    RefHintTable
	visited map[string]bool
}

func (h *hinter) render(node any, depth int) string {
	if depth >= maxHintDepth {
		return "unknown"
	}
	m, ok := node.(map[string]any)
	if !ok {
		return "any"
	}

	if ref, ok := m["$ref"].(string); ok {
		return h.renderRef(ref, depth)
	}
	if name, sig := h.renderComposite(m, "oneOf", depth); sig != "" {
		return name
	}
	if name, sig := h.renderComposite(m, "anyOf", depth); sig != "" {
		return name
	}
	if merged, ok := h.renderIntersection(m, depth); ok {
		return merged
	}

	if enumVals, ok := m["enum"].([]any); ok {
		return renderEnum(enumVals)
	}
	if constVal, ok := m["const"]; ok {
		b, _ := json.Marshal(constVal)
		return string(b)
	}

	t, _ := m["type"].(string)
	switch t {
	case "object", "":
		if _, hasProps := m["properties"]; hasProps || t == "object" {
			return h.renderObject(m, depth)
		}
		return "any"
	case "array":
		return h.renderArray(m, depth)
	case "string":
		return "string"
	case "integer", "number":
		return "number"
	case "boolean":
		return "boolean"
	case "null":
		return "null"
	default:
		return "any"
	}
}

func (h *hinter) renderRef(ref string, depth int) string {
	name := refName(ref)
	if h.visited[ref] {
		if sig, ok := h.refs[name]; ok {
			return sig
		}
		return "unknown"
	}
	if sig, ok := h.refs[name]; ok {
		return sig
	}
	h.visited[ref] = true
	defer delete(h.visited, ref)
	return name
}

func refName(ref string) string {
	parts := strings.Split(ref, "/")
	return parts[len(parts)-1]
}

func (h *hinter) renderComposite(m map[string]any, key string, depth int) (string, string) {
	raw, ok := m[key]
	if !ok {
		return "", ""
	}
	variants, ok := raw.([]any)
	if !ok || len(variants) == 0 {
		return "", ""
	}
	parts := make([]string, 0, len(variants))
	for _, v := range variants {
		parts = append(parts, h.render(v, depth+1))
	}
	joined := strings.Join(parts, " | ")
	return joined, joined
}

// renderIntersection merges allOf object branches into a single compact
// object hint (spec.md §9 "Large JSON-Schema intersections"). Falls
// back to the unmerged "A & B" string when merge is ambiguous (depth >
// 2, > 8 parts, or total length over threshold); never attempts
// set-theoretic reduction.
func (h *hinter) renderIntersection(m map[string]any, depth int) (string, bool) {
	raw, ok := m["allOf"]
	if !ok {
		return "", false
	}
	variants, ok := raw.([]any)
	if !ok || len(variants) == 0 {
		return "", false
	}

	if depth > 2 || len(variants) > 8 {
		return h.renderUnmergedIntersection(variants, depth), true
	}

	merged := map[string]any{}
	required := map[string]bool{}
	mergeable := true
	for _, v := range variants {
		vm, ok := v.(map[string]any)
		if !ok {
			mergeable = false
			break
		}
		if t, _ := vm["type"].(string); t != "" && t != "object" {
			mergeable = false
			break
		}
		props, _ := vm["properties"].(map[string]any)
		for k, pv := range props {
			merged[k] = pv
		}
		if reqs, ok := vm["required"].([]any); ok {
			for _, r := range reqs {
				if s, ok := r.(string); ok {
					required[s] = true
				}
			}
		}
	}
	if !mergeable || len(merged) == 0 {
		return h.renderUnmergedIntersection(variants, depth), true
	}

	obj := map[string]any{"type": "object", "properties": merged}
	if len(required) > 0 {
		reqs := make([]any, 0, len(required))
		for k := range required {
			reqs = append(reqs, k)
		}
		obj["required"] = reqs
	}
	out := h.renderObject(obj, depth)
	if len(out) > 400 {
		return h.renderUnmergedIntersection(variants, depth), true
	}
	return out, true
}

func (h *hinter) renderUnmergedIntersection(variants []any, depth int) string {
	parts := make([]string, 0, len(variants))
	for _, v := range variants {
		parts = append(parts, h.render(v, depth+1))
	}
	return strings.Join(parts, " & ")
}

func renderEnum(vals []any) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		parts = append(parts, string(b))
	}
	return strings.Join(parts, " | ")
}

func (h *hinter) renderObject(m map[string]any, depth int) string {
	propsRaw, _ := m["properties"].(map[string]any)
	if len(propsRaw) == 0 {
		return EmptyObjectHint
	}

	required := map[string]bool{}
	if reqs, ok := m["required"].([]any); ok {
		for _, r := range reqs {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(propsRaw))
	for k := range propsRaw {
		names = append(names, k)
	}
	sort.Strings(names)

	truncated := false
	if len(names) > maxHintWidth {
		names = names[:maxHintWidth]
		truncated = true
	}

	fields := make([]string, 0, len(names)+1)
	for _, name := range names {
		sub := h.render(propsRaw[name], depth+1)
		marker := "?"
		if required[name] {
			marker = ""
		}
		fields = append(fields, fmt.Sprintf("%s%s: %s", name, marker, sub))
	}
	if truncated {
		fields = append(fields, "[key: string]: any")
	}
	return "{ " + strings.Join(fields, ", ") + " }"
}

func (h *hinter) renderArray(m map[string]any, depth int) string {
	items, ok := m["items"]
	if !ok {
		return "any[]"
	}
	elem := h.render(items, depth+1)
	if strings.ContainsAny(elem, " |&") {
		return "(" + elem + ")[]"
	}
	return elem + "[]"
}
