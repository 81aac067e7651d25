package executors

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/revittco/toolrt/internal/mcpwire"
	"github.com/revittco/toolrt/internal/runspec"
)

type mcpRunner struct {
	params runspec.MCPParams
	pool   *mcpwire.Pool
}

// NewMCPExecutorFactory returns the runspec.RunnerFactory for
// runspec.KindMCP, grounded on the teacher's internal/downstream
// manager.go (one shared connection per key, reused by every tool that
// resolves to the same downstream server) and instance.go's
// reconnect-on-error pattern, narrowed to a single Streamable HTTP/SSE
// connection per spec.md §4.2 instead of a subprocess instance.
func NewMCPExecutorFactory(pool *mcpwire.Pool) runspec.RunnerFactory {
	return func(spec runspec.Spec) runspec.Runner {
		params, err := runspec.DecodeMCP(spec)
		if err != nil {
			return failingRunner{err: fmt.Errorf("decode mcp run-spec: %w", err)}
		}
		return mcpRunner{params: params, pool: pool}
	}
}

func (r mcpRunner) Run(ctx context.Context, call runspec.CallContext, input json.RawMessage) (json.RawMessage, error) {
	headers := mergedHeaders(r.params.AuthHeaders, call)
	key := mcpwire.Key{URL: r.params.URL, Transport: r.params.Transport, Headers: mcpwire.CanonicalizeHeaders(headers)}

	conn := r.pool.Get(key, headers)
	result, err := conn.CallTool(ctx, r.params.ToolName, input)
	if err != nil {
		if !mcpwire.IsReconnectable(err) {
			return nil, err
		}
		// Transport errors matching the reconnect regex: close, reconnect
		// once, retry once; beyond that, raise (spec.md §4.8).
		conn = r.pool.Reconnect(key, headers)
		if _, initErr := conn.Initialize(ctx, "toolrt", "0.1.0"); initErr != nil {
			return nil, fmt.Errorf("reconnect: %w", initErr)
		}
		result, err = conn.CallTool(ctx, r.params.ToolName, input)
		if err != nil {
			return nil, err
		}
	}

	flattened := flattenContent(result)
	if result.IsError {
		return nil, fmt.Errorf("mcp tool error: %s", flattened)
	}
	return flattened, nil
}

func mergedHeaders(authHeaders map[string]string, call runspec.CallContext) map[string]string {
	headers := make(map[string]string, len(authHeaders)+1)
	for k, v := range authHeaders {
		headers[k] = v
	}
	if call.Credential != nil && call.Credential.HeaderName != "" {
		headers[call.Credential.HeaderName] = call.Credential.HeaderValue
	}
	return headers
}

// flattenContent implements spec.md §4.8's MCP return-value flattening:
// one text content item becomes a bare string, many become a string
// array, and content with no text items passes through as the raw
// content array.
func flattenContent(result *mcpwire.CallToolResult) json.RawMessage {
	if result == nil {
		return json.RawMessage("null")
	}

	var texts []string
	for _, item := range result.Content {
		if item.Type == "text" {
			texts = append(texts, item.Text)
		}
	}

	switch len(texts) {
	case 0:
		b, err := json.Marshal(result.Content)
		if err != nil {
			return json.RawMessage("[]")
		}
		return b
	case 1:
		b, err := json.Marshal(texts[0])
		if err != nil {
			return json.RawMessage(`""`)
		}
		return b
	default:
		b, err := json.Marshal(texts)
		if err != nil {
			return json.RawMessage("[]")
		}
		return b
	}
}
