package policy

import (
	"context"

	"github.com/revittco/toolrt/internal/store"
)

// Engine resolves tool calls to allow/deny/require_approval decisions
// via the most specific matching PolicyRecord, adapted from the
// teacher's internal/routing.Engine.
type Engine struct {
	Policies store.PolicyStore
}

// NewEngine constructs a policy Engine over the given PolicyStore.
func NewEngine(policies store.PolicyStore) *Engine {
	return &Engine{Policies: policies}
}

// Decide returns the decision for a single tool path (spec.md §4.6
// "getToolDecision(task, tool, policies)").
func (e *Engine) Decide(ctx context.Context, callContext, toolPath, fallbackApproval string) (Decision, string, error) {
	records, err := e.Policies.ListAccessPolicies(ctx, callContext)
	if err != nil {
		return "", "", err
	}

	rules := parseRules(records)
	sortRules(rules)

	if rule, ok := matchRule(rules, toolPath); ok {
		return Decision(rule.Decision), rule.ID, nil
	}
	return FromApproval(fallbackApproval), "", nil
}

// DecideGraphQL computes the aggregated decision for a GraphQL call:
// every field the submitted query touches is decided against its
// effective path "<sourceKey>.<query|mutation>.<field>" (spec.md §8
// scenario 4's format exactly, so a plain policy written as
// {match: "linear.query.teams"} matches directly, with no synthetic
// prefix invented here), and the worst decision wins (spec.md §4.6
// "GraphQL decisions are field-level ... aggregate worst"). A rule
// recorded as "source:<sourceKey>" still matches too, via matchRule's
// own matchPattern normalization. It also returns the effective
// per-field paths so the caller can render them into the displayed
// call path (spec.md §4.7 step 4 "join the effective paths into the
// displayed path").
func (e *Engine) DecideGraphQL(ctx context.Context, callContext, sourceKey, query, fallbackApproval string) (Decision, []string, error) {
	fields, err := ExtractFieldPaths(query)
	if err != nil {
		return "", nil, err
	}

	records, err := e.Policies.ListAccessPolicies(ctx, callContext)
	if err != nil {
		return "", nil, err
	}
	rules := parseRules(records)
	sortRules(rules)

	effective := make([]string, 0, len(fields))
	decisions := make([]Decision, 0, len(fields))
	for _, field := range fields {
		path := sourceKey + "." + field
		effective = append(effective, path)
		if rule, ok := matchRule(rules, path); ok {
			decisions = append(decisions, Decision(rule.Decision))
			continue
		}
		decisions = append(decisions, FromApproval(fallbackApproval))
	}

	return Aggregate(decisions...), effective, nil
}
