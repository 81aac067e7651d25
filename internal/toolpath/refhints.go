package toolpath

import "encoding/json"

// BuildRefHintTable renders one short signature per named component
// schema (spec.md GLOSSARY "Ref-hint table"). Each entry is rendered
// independently against the full table so that components referencing
// each other by name resolve to the peer's name rather than recursing
// into its body, keeping signatures short.
func BuildRefHintTable(components map[string]json.RawMessage) RefHintTable {
	// Render against a name-only table so sibling $refs resolve to a name
	// regardless of map iteration order, instead of expanding into a peer
	// that happened to be rendered earlier.
	names := make(RefHintTable, len(components))
	for name := range components {
		names[name] = name
	}
	table := make(RefHintTable, len(components))
	for name, raw := range components {
		table[name] = DisplayHint(raw, names)
	}
	return table
}
