package discovery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/revittco/toolrt/internal/runspec"
	"github.com/revittco/toolrt/internal/sources"
)

// Registry holds a rebuilt Index alongside the buildId it was built
// for (runtime.Host sets BuildID to the workspace id on every rebuild).
// The built-in runners check only that Index is set and return
// ErrRegistryNotReady otherwise; BuildID is not compared before a
// Search.
type Registry struct {
	BuildID string
	Index   *Index
}

// ErrRegistryNotReady is the caller-visible, retryable signal spec.md
// §4.7 step 2 names explicitly.
var ErrRegistryNotReady = fmt.Errorf("registry is not ready")

// discoverInput is the decoded argument shape for the discover tool.
type discoverInput struct {
	Query     string `json:"query"`
	Namespace string `json:"namespace"`
	Compact   bool   `json:"compact"`
	Depth     int    `json:"depth"`
	Limit     int    `json:"limit"`
}

// discoverOutput is discover's response shape (spec.md §4.4 boundary
// behavior names bestPath/results/total explicitly).
type discoverOutput struct {
	BestPath *string          `json:"bestPath"`
	Results  []discoverResult `json:"results"`
	Total    int              `json:"total"`
}

type discoverResult struct {
	Path              string   `json:"path"`
	PreferredPath     string   `json:"preferredPath"`
	Score             int      `json:"score"`
	DisplayInputHint  string   `json:"displayInputHint,omitempty"`
	DisplayOutputHint string   `json:"displayOutputHint,omitempty"`
	PreviewInputKeys  []string `json:"previewInputKeys,omitempty"`
	RequiredInputKeys []string `json:"requiredInputKeys,omitempty"`
}

// discoverRunner is the live Runner for the "discover" built-in.
type discoverRunner struct{ reg *Registry }

func (r discoverRunner) Run(ctx context.Context, call runspec.CallContext, input json.RawMessage) (json.RawMessage, error) {
	if r.reg.Index == nil {
		return nil, ErrRegistryNotReady
	}
	var in discoverInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, fmt.Errorf("invalid discover input: %w", err)
		}
	}

	search := r.reg.Index.Search(in.Query, in.Namespace, in.Limit)
	out := discoverOutput{BestPath: search.BestPath, Total: search.Total}
	for _, res := range search.Results {
		dr := discoverResult{Path: res.Entry.Path, PreferredPath: res.Entry.PreferredPath, Score: res.Score}
		if !in.Compact {
			dr.DisplayInputHint = res.Entry.DisplayInputHint
			dr.DisplayOutputHint = res.Entry.DisplayOutputHint
			dr.PreviewInputKeys = res.Entry.PreviewInputKeys
			dr.RequiredInputKeys = res.Entry.RequiredInputKeys
		}
		out.Results = append(out.Results, dr)
	}
	return json.Marshal(out)
}

// namespacesRunner is the live Runner for "catalog.namespaces".
type namespacesRunner struct{ reg *Registry }

func (r namespacesRunner) Run(ctx context.Context, call runspec.CallContext, input json.RawMessage) (json.RawMessage, error) {
	if r.reg.Index == nil {
		return nil, ErrRegistryNotReady
	}
	return json.Marshal(map[string][]string{"namespaces": r.reg.Index.Namespaces()})
}

// catalogToolsInput is the decoded argument shape for catalog.tools.
type catalogToolsInput struct {
	Namespace string `json:"namespace"`
}

// toolsRunner is the live Runner for "catalog.tools".
type toolsRunner struct{ reg *Registry }

func (r toolsRunner) Run(ctx context.Context, call runspec.CallContext, input json.RawMessage) (json.RawMessage, error) {
	if r.reg.Index == nil {
		return nil, ErrRegistryNotReady
	}
	var in catalogToolsInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, fmt.Errorf("invalid catalog.tools input: %w", err)
		}
	}
	return json.Marshal(map[string][]string{"tools": r.reg.Index.ToolsByNamespace(in.Namespace)})
}

// Builtins returns the path -> Runner map Rehydrate needs for
// runSpec.kind == builtin (spec.md §4.3 "for builtin, look up the tool
// by path in the provided built-in map").
func Builtins(reg *Registry) map[string]runspec.Runner {
	return map[string]runspec.Runner{
		sources.PathDiscover:         discoverRunner{reg: reg},
		sources.PathCatalogNamespace: namespacesRunner{reg: reg},
		sources.PathCatalogTools:     toolsRunner{reg: reg},
	}
}

// BuildCatalogTools is the Assembler.CatalogFn that regenerates
// discover/catalog.* fresh on every read (spec.md §4.4 step 5 "catalog
// tools ... and discover are always regenerated and inserted last").
// It only returns the declarative shells; Builtins above supplies the
// live Runner once the registry is rehydrated.
func BuildCatalogTools(_ map[string]runspec.ToolDefinition) []runspec.ToolDefinition {
	return sources.BuiltinDefinitions()
}

// Suggest returns up to limit suggested tool paths for an unknown-tool
// error (spec.md §4.7 step 3 "call the search index for up to 3
// suggestions").
func Suggest(idx *Index, query string, limit int) []string {
	if idx == nil {
		return nil
	}
	result := idx.Search(query, "", limit)
	out := make([]string, 0, len(result.Results))
	for _, r := range result.Results {
		out = append(out, r.Entry.Path)
	}
	return out
}
