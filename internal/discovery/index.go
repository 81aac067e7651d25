package discovery

import (
	"sort"
	"strings"

	"github.com/revittco/toolrt/internal/runspec"
)

// stopwords are dropped from the query's intent phrase (spec.md §4.5
// "remaining non-stopword tokens"). The teacher's search.go has no
// stopword list (it does plain substring/multi-token matching); this
// set is new, sized to the common filler words a tool-discovery query
// would plausibly contain.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "for": true, "to": true, "of": true,
	"in": true, "on": true, "and": true, "or": true, "with": true, "by": true,
	"me": true, "my": true, "that": true, "this": true,
}

// Index is a built snapshot of every tool's searchable Entry, plus the
// set of top-level namespaces present (spec.md §4.5 "Extract namespace
// hints: terms that match any top-level namespace").
type Index struct {
	entries    map[string]Entry
	namespaces map[string]bool
}

// Build indexes every tool in the given inventory.
func Build(tools map[string]runspec.ToolDefinition) *Index {
	idx := &Index{entries: map[string]Entry{}, namespaces: map[string]bool{}}
	for path, t := range tools {
		idx.entries[path] = BuildEntry(t)
		if ns := namespaceOf(path); ns != "" {
			idx.namespaces[ns] = true
		}
	}
	return idx
}

func namespaceOf(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}

// Namespaces returns the sorted list of top-level namespaces.
func (idx *Index) Namespaces() []string {
	out := make([]string, 0, len(idx.namespaces))
	for ns := range idx.namespaces {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// ToolsByNamespace returns the sorted list of tool paths under ns.
func (idx *Index) ToolsByNamespace(ns string) []string {
	var out []string
	for path := range idx.entries {
		if namespaceOf(path) == ns {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// scored is one candidate's ranking state.
type scored struct {
	entry   Entry
	score   int
	matched int
}

// Result is one ranked search hit.
type Result struct {
	Entry Entry
	Score int
}

// SearchResult is discover's full response (spec.md §4.4's boundary
// behavior: "empty query to discover returns {bestPath: null, results:
// [], total: 0}").
type SearchResult struct {
	BestPath *string
	Results  []Result
	Total    int
}

// Search ranks every entry against query, optionally scoped to a
// namespace, and returns up to limit results (spec.md §4.5 "Ranking").
func (idx *Index) Search(query, namespace string, limit int) SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{}
	}
	if limit <= 0 {
		limit = 20
	}

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return SearchResult{}
	}

	namespaceHints := make(map[string]bool)
	for _, term := range terms {
		if idx.namespaces[term] {
			namespaceHints[term] = true
		}
	}

	var intentTokens []string
	for _, term := range terms {
		if !stopwords[term] && !namespaceHints[term] {
			intentTokens = append(intentTokens, term)
		}
	}
	intentPhrase := normalize(strings.Join(intentTokens, " "))

	minMatches := (len(terms) + 1) / 2 // ceil(terms/2)

	var candidates []scored
	for path, entry := range idx.entries {
		if namespace != "" && namespaceOf(path) != namespace {
			continue
		}

		ns := namespaceOf(path)
		score := 0
		if len(namespaceHints) > 0 {
			if namespaceHints[ns] {
				score += 6
			} else {
				score -= 8
			}
		}

		matched := 0
		for _, term := range terms {
			if strings.Contains(entry.NormalizedSearchText, term) {
				matched++
				score++
				if strings.Contains(entry.NormalizedPath, term) {
					score += 2
				}
			}
		}
		if matched < minMatches {
			continue
		}

		if intentPhrase != "" {
			if strings.Contains(entry.NormalizedPath, intentPhrase) {
				score += 6
			}
			if strings.Contains(entry.NormalizedSearchText, intentPhrase) {
				score += 3
			}
		}
		score += matched * 2

		candidates = append(candidates, scored{entry: entry, score: score, matched: matched})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if len(candidates[i].entry.Path) != len(candidates[j].entry.Path) {
			return len(candidates[i].entry.Path) < len(candidates[j].entry.Path)
		}
		return candidates[i].entry.Path < candidates[j].entry.Path
	})

	total := len(candidates)
	best := bestPath(candidates, len(terms))
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, Result{Entry: c.entry, Score: c.score})
	}

	return SearchResult{BestPath: best, Results: results, Total: total}
}

// bestPath implements spec.md §4.5's best-path rule: "require the top
// score ≥ max(3, 2·|terms|−1) and ≥ 2 above the runner-up; otherwise
// bestPath = null."
func bestPath(ranked []scored, termCount int) *string {
	if len(ranked) == 0 {
		return nil
	}
	threshold := 2*termCount - 1
	if threshold < 3 {
		threshold = 3
	}
	if ranked[0].score < threshold {
		return nil
	}
	if len(ranked) > 1 && ranked[0].score-ranked[1].score < 2 {
		return nil
	}
	path := ranked[0].entry.Path
	return &path
}
