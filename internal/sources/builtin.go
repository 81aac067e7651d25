package sources

import (
	"encoding/json"

	"github.com/revittco/toolrt/internal/runspec"
	"github.com/revittco/toolrt/internal/toolpath"
)

// Built-in tool paths. These are the fixed, always-present tools the
// assembler merges in ahead of any source-backed tool (spec.md §4.4
// step 5 "Merge: built-ins, then externals ... then catalog tools
// (catalog.namespaces, catalog.tools) and discover are always
// regenerated and inserted last"). Their runSpec.kind is builtin, so
// Rehydrate resolves their Runner by path from a caller-supplied
// builtins map (internal/discovery owns those implementations, since
// discover/catalog.* need the live registry to answer).
const (
	PathDiscover         = "discover"
	PathCatalogNamespace = "catalog.namespaces"
	PathCatalogTools     = "catalog.tools"
)

// BuiltinDefinitions returns the declarative shells for the fixed
// system tools. internal/discovery attaches the live Runner for each
// path at rehydration time.
func BuiltinDefinitions() []runspec.ToolDefinition {
	return []runspec.ToolDefinition{
		builtinDef(PathDiscover, "Rank-search the tool inventory by keyword, namespace, and intent phrase.",
			`{"type":"object","properties":{"query":{"type":"string"},"namespace":{"type":"string"},"compact":{"type":"boolean"},"depth":{"type":"integer"},"limit":{"type":"integer"}},"required":["query"]}`,
			"{ query: string, namespace?: string, compact?: boolean, depth?: number, limit?: number }"),
		builtinDef(PathCatalogNamespace, "List the top-level namespaces present in the current inventory.",
			`{"type":"object","properties":{}}`, toolpath.EmptyObjectHint),
		builtinDef(PathCatalogTools, "List every tool path under a given namespace.",
			`{"type":"object","properties":{"namespace":{"type":"string"}},"required":["namespace"]}`,
			"{ namespace: string }"),
	}
}

func builtinDef(path, description, inputSchema, inputHint string) runspec.ToolDefinition {
	runSpec, err := runspec.Encode(runspec.KindBuiltin, runspec.BuiltinParams{Path: path})
	if err != nil {
		panic(err) // encoding a static literal struct; only fails on programmer error
	}
	return runspec.ToolDefinition{
		Path:          path,
		PreferredPath: path,
		Source:        "builtin",
		Approval:      runspec.ApprovalAuto,
		Description:   description,
		Typing: runspec.Typing{
			InputSchema: json.RawMessage(inputSchema),
			InputHint:   inputHint,
		},
		RunSpec: runSpec,
	}
}
