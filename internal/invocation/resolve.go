package invocation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/revittco/toolrt/internal/discovery"
	"github.com/revittco/toolrt/internal/runspec"
	"github.com/revittco/toolrt/internal/toolpath"
)

// UnknownToolError is raised on a total resolution miss (spec.md §4.7
// step 3 "raise Unknown tool: <path> with suggestion text and a
// tools.discover({...}) hint").
type UnknownToolError struct {
	Path        string
	Suggestions []string
}

func (e *UnknownToolError) Error() string {
	msg := fmt.Sprintf("Unknown tool: %s", e.Path)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	msg += fmt.Sprintf(" — try tools.discover({query: %q})", e.Path)
	return msg
}

const maxSuggestions = 3

// resolveTool implements spec.md §4.7 step 3: exact lookup against the
// live inventory, then normalized-form search preferring a
// preferred-path match or else the shortest canonical path, then a
// suggestion-bearing failure. idx is consulted only for suggestions on
// a total miss (spec.md "call the search index for up to 3
// suggestions").
func resolveTool(tools map[string]runspec.ToolDefinition, idx *discovery.Index, path string) (*runspec.ToolDefinition, error) {
	if def, ok := tools[path]; ok {
		return &def, nil
	}

	normalizedQuery := normalizePath(path)
	preferredQuery := toolpath.PreferredPath(normalizedQuery)

	var candidates []runspec.ToolDefinition
	for toolPath, def := range tools {
		if normalizePath(toolPath) == normalizedQuery {
			candidates = append(candidates, def)
		}
	}

	if len(candidates) > 0 {
		for _, c := range candidates {
			if toolpath.PreferredPath(normalizePath(c.Path)) == preferredQuery {
				cc := c
				return &cc, nil
			}
		}
		sort.Slice(candidates, func(i, j int) bool {
			if len(candidates[i].Path) != len(candidates[j].Path) {
				return len(candidates[i].Path) < len(candidates[j].Path)
			}
			return candidates[i].Path < candidates[j].Path
		})
		best := candidates[0]
		return &best, nil
	}

	return nil, &UnknownToolError{Path: path, Suggestions: discovery.Suggest(idx, path, maxSuggestions)}
}

// normalizePath sanitizes every dot-segment of path independently, the
// way toolpath.Builder does at construction time, so a caller's loosely
// cased or punctuated path can still match a canonical one.
func normalizePath(path string) string {
	segs := strings.Split(path, ".")
	for i, s := range segs {
		segs[i] = toolpath.Sanitize(s)
	}
	return strings.Join(segs, ".")
}
