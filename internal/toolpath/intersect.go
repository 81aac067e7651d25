package toolpath

import "encoding/json"

// MergeObjectSchemas implements the set-union half of spec.md §9's
// intersection rule at the raw-schema level (as opposed to hints.go's
// string-hint level): it combines several object schema fragments'
// "properties"/"required" into one, for callers that need an actual
// merged JSON Schema rather than just its rendered hint; nothing else in
// this module calls it (OpenAPI parameter buckets are assembled by
// bucketInputSchema in internal/sources). Non-object
// fragments are dropped; callers needing the unmerged form should
// avoid calling this and retain each fragment separately.
func MergeObjectSchemas(fragments ...json.RawMessage) json.RawMessage {
	properties := map[string]json.RawMessage{}
	requiredSet := map[string]bool{}

	for _, frag := range fragments {
		if len(frag) == 0 {
			continue
		}
		var obj struct {
			Type       string                     `json:"type"`
			Properties map[string]json.RawMessage `json:"properties"`
			Required   []string                    `json:"required"`
		}
		if err := json.Unmarshal(frag, &obj); err != nil {
			continue
		}
		if obj.Type != "" && obj.Type != "object" {
			continue
		}
		for k, v := range obj.Properties {
			properties[k] = v
		}
		for _, r := range obj.Required {
			requiredSet[r] = true
		}
	}

	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(requiredSet) > 0 {
		required := make([]string, 0, len(requiredSet))
		for r := range requiredSet {
			required = append(required, r)
		}
		out["required"] = required
	}
	b, err := json.Marshal(out)
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return b
}

// UnionSchemas wraps several schema fragments in an "anyOf", the
// normalized form for "this input may satisfy any one of these shapes"
// (spec.md §9 "union normalization"). Deduplicates identical fragments
// by their compact JSON form.
func UnionSchemas(fragments ...json.RawMessage) json.RawMessage {
	seen := map[string]bool{}
	variants := make([]json.RawMessage, 0, len(fragments))
	for _, frag := range fragments {
		if len(frag) == 0 {
			continue
		}
		var compact map[string]any
		if err := json.Unmarshal(frag, &compact); err != nil {
			continue
		}
		b, err := json.Marshal(compact)
		if err != nil {
			continue
		}
		key := string(b)
		if seen[key] {
			continue
		}
		seen[key] = true
		variants = append(variants, json.RawMessage(key))
	}
	if len(variants) == 1 {
		return variants[0]
	}
	out, err := json.Marshal(map[string]any{"anyOf": variants})
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return out
}
