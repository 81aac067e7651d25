// Package sources implements spec.md §4.2 "Source Loaders": one loader
// per protocol, each turning a store.ToolSource's config into a list of
// live runspec.ToolDefinition. Grounded on the teacher's
// internal/downstream package for the "one live connection/session per
// source" discipline and internal/config/seed_servers.go for the
// per-entry config -> domain translation style.
package sources

import (
	"context"

	"github.com/revittco/toolrt/internal/runspec"
	"github.com/revittco/toolrt/internal/store"
)

// Loader compiles one ToolSource into its ToolDefinitions. A Loader
// must never return a partial ToolDefinition list alongside a non-nil
// error: failure is reported as (nil, warnings, err) and the assembler
// treats the whole source as contributing no tools for that failed
// load (spec.md §4.1 "Fetch/parse failure is fatal for this source").
type Loader interface {
	Load(ctx context.Context, src store.ToolSource) ([]runspec.ToolDefinition, []string, error)
}

// Registry maps a ToolSource.Type to the Loader that handles it.
type Registry map[string]Loader

// NewRegistry wires the four protocol loaders plus nothing else; the
// built-in (system) tools are assembled separately by
// internal/inventory since they aren't backed by any ToolSource row.
func NewRegistry(openapi, postman, graphql, mcp Loader) Registry {
	r := Registry{}
	if openapi != nil {
		r["openapi"] = openapi
	}
	if postman != nil {
		r["postman"] = postman
	}
	if graphql != nil {
		r["graphql"] = graphql
	}
	if mcp != nil {
		r["mcp"] = mcp
	}
	return r
}

func (r Registry) For(sourceType string) (Loader, bool) {
	l, ok := r[sourceType]
	return l, ok
}
