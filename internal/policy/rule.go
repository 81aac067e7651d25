package policy

import (
	"sort"
	"strings"

	"github.com/revittco/toolrt/internal/store"
)

// parsedRule is a PolicyRecord with its glob specificity pre-computed,
// adapted from the teacher's internal/routing/rule.go parsedRule.
type parsedRule struct {
	store.PolicyRecord
	specificity int
}

func parseRules(records []store.PolicyRecord) []parsedRule {
	out := make([]parsedRule, 0, len(records))
	for _, r := range records {
		out = append(out, parsedRule{PolicyRecord: r, specificity: GlobSpecificity(matchPattern(r.Match))})
	}
	return out
}

// matchPattern strips a "source:<sourceKey>" rule down to the glob
// pattern it's compared against: the remainder is matched as-is, so
// "source:shopify.mutation.deleteProduct" matches the GraphQL field
// path "shopify.mutation.deleteProduct" DecideGraphQL builds.
func matchPattern(match string) string {
	if rest, ok := strings.CutPrefix(match, "source:"); ok {
		return rest
	}
	return match
}

// sortRules orders most-specific-first, tiebreaking on Priority desc
// then ID asc for determinism (teacher's internal/routing/rule.go
// sortRules).
func sortRules(rules []parsedRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].specificity != rules[j].specificity {
			return rules[i].specificity > rules[j].specificity
		}
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}

// matchRule finds the first (most specific) rule whose Match pattern
// matches path, if any.
func matchRule(rules []parsedRule, path string) (*parsedRule, bool) {
	for i := range rules {
		if GlobMatch(matchPattern(rules[i].Match), path) {
			return &rules[i], true
		}
	}
	return nil, false
}
