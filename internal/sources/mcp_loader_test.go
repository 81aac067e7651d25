package sources

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/revittco/toolrt/internal/mcpwire"
	"github.com/revittco/toolrt/internal/runspec"
	"github.com/revittco/toolrt/internal/store"
)

// fakeMCPServer answers initialize, notifications/initialized, and
// tools/list over a single HTTP endpoint, mirroring a minimal
// Streamable HTTP MCP server.
func fakeMCPServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req mcpwire.Request
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")

		switch req.Method {
		case "initialize":
			result, _ := json.Marshal(mcpwire.InitializeResult{
				ProtocolVersion: "2024-11-05",
				ServerInfo:      mcpwire.ServerInfo{Name: "fake", Version: "1.0"},
			})
			writeRPCResult(w, req.ID, result)
		case "notifications/initialized":
			w.WriteHeader(http.StatusAccepted)
		case "tools/list":
			result, _ := json.Marshal(mcpwire.ListToolsResult{
				Tools: []mcpwire.ToolInfo{
					{Name: "search_issues", Description: "Search issues", InputSchema: json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}},"required":["q"]}`)},
				},
			})
			writeRPCResult(w, req.ID, result)
		default:
			t.Fatalf("unexpected method %q", req.Method)
		}
	}))
}

func writeRPCResult(w http.ResponseWriter, id json.RawMessage, result json.RawMessage) {
	resp := mcpwire.Response{JSONRPC: "2.0", ID: id, Result: result}
	b, _ := json.Marshal(resp)
	_, _ = w.Write(b)
}

func TestMCPLoader_ListsAndBuildsTools(t *testing.T) {
	srv := fakeMCPServer(t)
	defer srv.Close()

	loader := NewMCPLoader(mcpwire.NewPool(), "toolrt", "test")
	cfg := MCPConfig{URL: srv.URL}
	cfgBytes, _ := json.Marshal(cfg)
	src := store.ToolSource{ID: "s1", Type: "mcp", Name: "github", Config: cfgBytes}

	tools, warnings, err := loader.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	tool := tools[0]
	if tool.Approval != runspec.ApprovalRequired {
		t.Errorf("approval = %q, want required", tool.Approval)
	}
	params, err := runspec.DecodeMCP(tool.RunSpec)
	if err != nil {
		t.Fatalf("DecodeMCP: %v", err)
	}
	if params.ToolName != "search_issues" {
		t.Errorf("toolName = %q, want search_issues", params.ToolName)
	}
	if params.Transport != mcpwire.TransportStreamableHTTP {
		t.Errorf("transport = %q, want streamable-http", params.Transport)
	}
}

func TestMCPLoader_SharesConnectionAcrossCalls(t *testing.T) {
	srv := fakeMCPServer(t)
	defer srv.Close()

	pool := mcpwire.NewPool()
	loader := NewMCPLoader(pool, "toolrt", "test")
	cfg := MCPConfig{URL: srv.URL}
	cfgBytes, _ := json.Marshal(cfg)
	src := store.ToolSource{ID: "s1", Type: "mcp", Name: "github", Config: cfgBytes}

	if _, _, err := loader.Load(context.Background(), src); err != nil {
		t.Fatalf("first Load: %v", err)
	}
	key := mcpwire.Key{URL: srv.URL, Transport: mcpwire.TransportStreamableHTTP, Headers: mcpwire.CanonicalizeHeaders(nil)}
	first := pool.Get(key, nil)

	if _, _, err := loader.Load(context.Background(), src); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	second := pool.Get(key, nil)
	if first != second {
		t.Errorf("expected pooled connection to be reused across loads")
	}
}
