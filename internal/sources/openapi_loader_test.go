package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/revittco/toolrt/internal/openapi"
	"github.com/revittco/toolrt/internal/runspec"
	"github.com/revittco/toolrt/internal/store"
)

const sampleOpenAPISpec = `{
  "openapi": "3.0.3",
  "info": {"title": "Widgets", "version": "1.0.0"},
  "servers": [{"url": "https://api.widgets.test"}],
  "paths": {
    "/widgets/{id}": {
      "get": {
        "operationId": "getWidget",
        "tags": ["Widgets"],
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {
          "200": {"description": "ok", "content": {"application/json": {"schema": {"type": "object", "properties": {"id": {"type": "string"}}}}}}
        }
      },
      "delete": {
        "operationId": "deleteWidget",
        "tags": ["Widgets"],
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"204": {"description": "no content"}}
      }
    }
  }
}`

func TestOpenAPILoader_BuildsToolsWithApprovalByMethod(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleOpenAPISpec))
	}))
	defer srv.Close()

	loader := NewOpenAPILoader(openapi.NewPreparer(nil))
	cfg := OpenAPIConfig{SpecURL: srv.URL + "/openapi.json"}
	cfgBytes, _ := json.Marshal(cfg)
	src := store.ToolSource{ID: "s1", Type: "openapi", Name: "widgets", Config: cfgBytes}

	tools, _, err := loader.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d: %+v", len(tools), tools)
	}

	var get, del *runspec.ToolDefinition
	for i := range tools {
		params, err := runspec.DecodeOpenAPI(tools[i].RunSpec)
		if err != nil {
			t.Fatalf("DecodeOpenAPI: %v", err)
		}
		switch params.Method {
		case "GET":
			get = &tools[i]
		case "DELETE":
			del = &tools[i]
		}
	}
	if get == nil || del == nil {
		t.Fatalf("missing expected tools: %+v", tools)
	}
	if get.Approval != runspec.ApprovalAuto {
		t.Errorf("GET approval = %q, want auto", get.Approval)
	}
	if del.Approval != runspec.ApprovalRequired {
		t.Errorf("DELETE approval = %q, want required", del.Approval)
	}
	if get.Typing.OutputHint == "" {
		t.Errorf("expected a non-empty output hint for 200 response")
	}
	if del.Typing.OutputHint != "void" {
		t.Errorf("DELETE outputHint = %q, want void for 204", del.Typing.OutputHint)
	}
	if get.Typing.TypedRef == nil || get.Typing.TypedRef.OperationID != "getWidget" {
		t.Errorf("expected typedRef for getWidget operation")
	}
}
