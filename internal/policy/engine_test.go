package policy

import (
	"context"
	"testing"

	"github.com/revittco/toolrt/internal/store"
)

type fakePolicyStore struct {
	records []store.PolicyRecord
}

func (f *fakePolicyStore) ListAccessPolicies(ctx context.Context, callContext string) ([]store.PolicyRecord, error) {
	return f.records, nil
}

func TestDecide_FallsBackToToolApprovalWhenNoRuleMatches(t *testing.T) {
	e := NewEngine(&fakePolicyStore{})
	d, ruleID, err := e.Decide(context.Background(), "ws1", "github.create_issue", "required")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != RequireApproval || ruleID != "" {
		t.Errorf("got decision=%s ruleID=%q, want require_approval/\"\"", d, ruleID)
	}
}

func TestDecide_MostSpecificRuleWins(t *testing.T) {
	records := []store.PolicyRecord{
		{ID: "broad", Match: "github.*", Context: "ws1", Decision: "allow", Priority: 0},
		{ID: "narrow", Match: "github.delete_repo", Context: "ws1", Decision: "deny", Priority: 0},
	}
	e := NewEngine(&fakePolicyStore{records: records})
	d, ruleID, err := e.Decide(context.Background(), "ws1", "github.delete_repo", "auto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != Deny || ruleID != "narrow" {
		t.Errorf("got decision=%s ruleID=%s, want deny/narrow", d, ruleID)
	}
}

func TestDecide_PriorityTiebreaksEqualSpecificity(t *testing.T) {
	records := []store.PolicyRecord{
		{ID: "low", Match: "github.*", Context: "ws1", Decision: "allow", Priority: 1},
		{ID: "high", Match: "github.*", Context: "ws1", Decision: "require_approval", Priority: 5},
	}
	e := NewEngine(&fakePolicyStore{records: records})
	d, ruleID, err := e.Decide(context.Background(), "ws1", "github.create_issue", "auto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != RequireApproval || ruleID != "high" {
		t.Errorf("got decision=%s ruleID=%s, want require_approval/high", d, ruleID)
	}
}

func TestDecideGraphQL_AggregatesWorstAcrossFields(t *testing.T) {
	records := []store.PolicyRecord{
		{ID: "deny-delete", Match: "source:shopify.mutation.deleteProduct", Context: "ws1", Decision: "deny", Priority: 0},
	}
	e := NewEngine(&fakePolicyStore{records: records})
	query := `mutation { deleteProduct(id: "1") { id } createProduct(input: {}) { id } }`
	d, paths, err := e.DecideGraphQL(context.Background(), "ws1", "shopify", query, "auto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != Deny {
		t.Errorf("expected aggregated decision=deny, got %s", d)
	}
	if len(paths) != 2 {
		t.Errorf("expected 2 effective paths, got %v", paths)
	}
}

func TestDecideGraphQL_PlainDottedPathPolicyMatches(t *testing.T) {
	records := []store.PolicyRecord{
		{ID: "deny-delete", Match: "shopify.mutation.deleteProduct", Context: "ws1", Decision: "deny", Priority: 0},
	}
	e := NewEngine(&fakePolicyStore{records: records})
	query := `mutation { deleteProduct(id: "1") { id } }`
	d, paths, err := e.DecideGraphQL(context.Background(), "ws1", "shopify", query, "allow")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != Deny {
		t.Errorf("expected plain dotted-path policy to match and yield deny, got %s (paths=%v)", d, paths)
	}
}

func TestDecideGraphQL_InlinesFragmentsAndDedupesAliases(t *testing.T) {
	e := NewEngine(&fakePolicyStore{})
	query := `
		query {
			a: widget(id: "1") { id }
			...WidgetFrag
		}
		fragment WidgetFrag on Query {
			widget(id: "2") { id }
		}
	`
	_, paths, err := e.DecideGraphQL(context.Background(), "ws1", "api", query, "auto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 1 || paths[0] != "api.query.widget" {
		t.Errorf("expected deduped [api.query.widget], got %v", paths)
	}
}

func TestAggregate_EmptyIsAllow(t *testing.T) {
	if got := Aggregate(); got != Allow {
		t.Errorf("Aggregate() = %s, want allow", got)
	}
}
