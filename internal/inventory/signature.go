// Package inventory implements the Workspace Inventory Assembler
// (spec.md §4.4): normalize enabled sources, compute a cache
// signature, consult the snapshot cache, load sources in parallel with
// a per-source timeout, merge with built-ins and the always-regenerated
// catalog/discover tools, and persist the result. Grounded on the
// teacher's internal/cache (generic Cache[K,V] reused as the snapshot
// cache) and internal/downstream/manager.go's errgroup fan-out over
// per-server loads, generalized to per-source tool loads.
package inventory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/revittco/toolrt/internal/store"
)

// SignatureVersion is bumped whenever the snapshot format or
// derivation logic changes, invalidating all prior caches globally
// (spec.md §6 "Signature version").
const SignatureVersion = "toolreg_v2"

// Signature computes the deterministic SourceSignature: `version |
// workspaceId | sorted(id:updatedAt:enabled)` (spec.md §3
// "SourceSignature"). Sorting makes the signature independent of
// source listing order (spec.md §9 "Signature stability").
func Signature(workspaceID string, sources []store.ToolSource) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, fmt.Sprintf("%s:%d:%t", s.ID, s.UpdatedAt.UnixNano(), s.Enabled))
	}
	sort.Strings(parts)
	return strings.Join([]string{SignatureVersion, workspaceID, strings.Join(parts, ",")}, "|")
}
