package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dop251/goja"

	"github.com/revittco/toolrt/internal/runspec"
	"github.com/revittco/toolrt/internal/store"
)

const samplePostmanCollection = `{
  "info": {"name": "Sample"},
  "variable": [{"key": "base", "value": "https://api.example.com"}, {"key": "rid", "value": "{{$randomInt}}"}],
  "item": [
    {
      "name": "Users",
      "item": [
        {
          "name": "List users",
          "request": {
            "method": "GET",
            "header": [{"key": "Accept", "value": "application/json"}],
            "url": {"raw": "{{base}}/users", "query": [{"key": "page", "value": "1"}]}
          }
        },
        {
          "name": "Create user",
          "request": {
            "method": "POST",
            "header": [],
            "url": {"raw": "{{base}}/users"},
            "body": {"mode": "raw", "raw": "{\"name\":\"x\"}"}
          }
        }
      ]
    }
  ]
}`

func newPostmanTestServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestPostmanLoader_FlattensFoldersAndSetsApproval(t *testing.T) {
	srv := newPostmanTestServer(t, samplePostmanCollection)
	defer srv.Close()

	loader := NewPostmanLoader(srv.Client())
	cfg := PostmanConfig{CollectionURL: "https://example.com/collection.json", ProxyURL: srv.URL}
	cfgBytes, _ := json.Marshal(cfg)
	src := store.ToolSource{ID: "s1", Type: "postman", Name: "crm", Config: cfgBytes}

	tools, warnings, err := loader.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}

	var get, post *runspec.ToolDefinition
	for i := range tools {
		switch tools[i].Description {
		case "List users":
			get = &tools[i]
		case "Create user":
			post = &tools[i]
		}
	}
	if get == nil || post == nil {
		t.Fatalf("missing expected tools: %+v", tools)
	}
	if get.Approval != runspec.ApprovalAuto {
		t.Errorf("GET approval = %q, want auto", get.Approval)
	}
	if post.Approval != runspec.ApprovalRequired {
		t.Errorf("POST approval = %q, want required", post.Approval)
	}
	if !strings.Contains(get.Path, "crm") || !strings.Contains(get.Path, "users") {
		t.Errorf("unexpected path %q", get.Path)
	}

	params, err := runspec.DecodePostman(post.RunSpec)
	if err != nil {
		t.Fatalf("DecodePostman: %v", err)
	}
	if params.BodyMode != "raw" || params.Body == "" {
		t.Errorf("unexpected postman params: %+v", params)
	}
	if params.Variables["base"] != "https://api.example.com" {
		t.Errorf("static variable not preserved: %+v", params.Variables)
	}
	if params.Variables["rid"] == "{{$randomInt}}" {
		t.Errorf("dynamic variable was not evaluated")
	}
}

func TestEvaluateDynamicVariable_UnknownHelperPassesThrough(t *testing.T) {
	vm := goja.New()
	got := evaluateDynamicVariable(vm, "{{$notAHelper}}")
	if got != "{{$notAHelper}}" {
		t.Errorf("expected passthrough, got %q", got)
	}
}
