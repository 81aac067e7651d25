package toolpath

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "GetDomain", "getdomain"},
		{"spaces to underscore", "list workflow runs", "list_workflow_runs"},
		{"leading digit prefixed", "123abc", "_123abc"},
		{"trims noise", "__foo__", "foo"},
		{"empty becomes underscore", "***", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuilder_CollisionAvoidance(t *testing.T) {
	b := NewBuilder()
	first := b.Build("github", "actions", "list_workflow_runs")
	second := b.Build("github", "actions", "list_workflow_runs")
	third := b.Build("github", "actions", "list_workflow_runs")

	if first != "github.actions.list_workflow_runs" {
		t.Errorf("first = %q", first)
	}
	if second != "github.actions.list_workflow_runs_2" {
		t.Errorf("second = %q", second)
	}
	if third != "github.actions.list_workflow_runs_3" {
		t.Errorf("third = %q", third)
	}
}

func TestNormalizeTag(t *testing.T) {
	tests := []struct{ in, want string }{
		{"api_2024_01_15_domains", "domains"},
		{"v2_domains", "domains"},
		{"api_20240115_v1_domains", "domains"},
		{"domains", "domains"},
	}
	for _, tt := range tests {
		if got := NormalizeTag(tt.in); got != tt.want {
			t.Errorf("NormalizeTag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDedupeOperationPrefix(t *testing.T) {
	if got := DedupeOperationPrefix("domains", "domains_get_domain"); got != "get_domain" {
		t.Errorf("got %q", got)
	}
	if got := DedupeOperationPrefix("domains", "get_domain"); got != "get_domain" {
		t.Errorf("got %q, want unchanged", got)
	}
}

func TestPreferredPath(t *testing.T) {
	in := "vercel_vercel_api.domains.get_domain"
	want := "vercel.domains.get_domain"
	if got := PreferredPath(in); got != want {
		t.Errorf("PreferredPath(%q) = %q, want %q", in, got, want)
	}
}
