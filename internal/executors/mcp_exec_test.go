package executors

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/revittco/toolrt/internal/mcpwire"
	"github.com/revittco/toolrt/internal/runspec"
)

func fakeToolCallServer(t *testing.T, content []mcpwire.ContentItem) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req mcpwire.Request
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("bad request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "tools/call":
			result, _ := json.Marshal(mcpwire.CallToolResult{Content: content})
			resp := mcpwire.Response{JSONRPC: "2.0", ID: req.ID, Result: result}
			b, _ := json.Marshal(resp)
			_, _ = w.Write(b)
		default:
			t.Fatalf("unexpected method %q", req.Method)
		}
	}))
}

func TestMCPRunner_SingleTextContentFlattensToString(t *testing.T) {
	srv := fakeToolCallServer(t, []mcpwire.ContentItem{{Type: "text", Text: "42 issues found"}})
	defer srv.Close()

	spec, _ := runspec.Encode(runspec.KindMCP, runspec.MCPParams{
		URL: srv.URL, Transport: mcpwire.TransportStreamableHTTP, ToolName: "search_issues",
	})
	runner := NewMCPExecutorFactory(mcpwire.NewPool())(spec)

	out, err := runner.Run(ctxBG(), runspec.CallContext{}, json.RawMessage(`{"q":"bug"}`))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != `"42 issues found"` {
		t.Errorf("out = %s", out)
	}
}

func TestMCPRunner_MultipleTextContentFlattensToStringArray(t *testing.T) {
	srv := fakeToolCallServer(t, []mcpwire.ContentItem{{Type: "text", Text: "a"}, {Type: "text", Text: "b"}})
	defer srv.Close()

	spec, _ := runspec.Encode(runspec.KindMCP, runspec.MCPParams{
		URL: srv.URL, Transport: mcpwire.TransportStreamableHTTP, ToolName: "search_issues",
	})
	runner := NewMCPExecutorFactory(mcpwire.NewPool())(spec)

	out, err := runner.Run(ctxBG(), runspec.CallContext{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != `["a","b"]` {
		t.Errorf("out = %s", out)
	}
}

func TestMCPRunner_NoTextContentPassesThroughArray(t *testing.T) {
	srv := fakeToolCallServer(t, []mcpwire.ContentItem{{Type: "image"}})
	defer srv.Close()

	spec, _ := runspec.Encode(runspec.KindMCP, runspec.MCPParams{
		URL: srv.URL, Transport: mcpwire.TransportStreamableHTTP, ToolName: "search_issues",
	})
	runner := NewMCPExecutorFactory(mcpwire.NewPool())(spec)

	out, err := runner.Run(ctxBG(), runspec.CallContext{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != `[{"type":"image"}]` {
		t.Errorf("out = %s", out)
	}
}
