// Package runtime is the composition point between the workspace
// inventory assembler, the executor registry, and the discovery index:
// it is the one place that holds both a store.ToolSourceStore's
// declarative tool list and the live dial-out Runner closures, so it is
// also the one place runspec.Rehydrate can be called (spec.md §4.3
// "Rehydration ... happens once per registry build, not per call").
// Grounded on the teacher's gateway.Server constructor, which performs
// the same role of gluing the routing engine and downstream manager
// together before handing a ready-to-serve object to transports.
package runtime

import (
	"context"
	"fmt"

	"github.com/revittco/toolrt/internal/discovery"
	"github.com/revittco/toolrt/internal/inventory"
	"github.com/revittco/toolrt/internal/runspec"
)

// Host owns one workspace's inventory assembler and discovery registry
// and produces a rehydrated, indexed tool set on demand.
type Host struct {
	Assembler *inventory.Assembler
	Executors runspec.ExecutorRegistry
	Discovery *discovery.Registry
}

// NewHost wires an Assembler and an ExecutorRegistry into a Host with
// its own empty discovery.Registry, which built-in tools close over by
// pointer so their view of the index updates every time Tools rebuilds
// it (internal/discovery.Builtins' contract).
func NewHost(assembler *inventory.Assembler, executors runspec.ExecutorRegistry) *Host {
	return &Host{Assembler: assembler, Executors: executors, Discovery: &discovery.Registry{}}
}

// Tools runs getWorkspaceTools, rehydrates every returned definition's
// Runner, and rebuilds the discovery index over the result, returning a
// tool set ready to hand to an invocation.Pipeline.
func (h *Host) Tools(ctx context.Context, workspaceID string, opts inventory.Options) (*inventory.Result, *discovery.Index, error) {
	result, err := h.Assembler.GetWorkspaceTools(ctx, workspaceID, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("get workspace tools: %w", err)
	}

	builtins := discovery.Builtins(h.Discovery)
	for path, def := range result.Tools {
		result.Tools[path] = *runspec.Rehydrate(&def, h.Executors, builtins)
	}

	idx := discovery.Build(result.Tools)
	h.Discovery.Index = idx
	h.Discovery.BuildID = workspaceID
	return result, idx, nil
}
