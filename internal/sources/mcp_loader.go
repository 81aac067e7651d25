package sources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/revittco/toolrt/internal/mcpwire"
	"github.com/revittco/toolrt/internal/runspec"
	"github.com/revittco/toolrt/internal/store"
	"github.com/revittco/toolrt/internal/toolpath"
)

// MCPConfig is the decoded store.ToolSource.Config for type "mcp"
// (spec.md §4.2 "MCP loader (one entry per configured MCP server)").
type MCPConfig struct {
	URL         string                  `json:"url"`
	Transport   string                  `json:"transport,omitempty"` // streamable-http|sse, default streamable-http
	QueryParams map[string]string       `json:"queryParams,omitempty"`
	AuthHeaders map[string]string       `json:"authHeaders,omitempty"`
	Credential  *runspec.CredentialSpec `json:"credential,omitempty"`
}

// MCPLoader connects to a configured MCP server, lists its tools, and
// emits one ToolDefinition per tool entry (spec.md §4.2). Connections
// are shared process-wide through Pool: the loader and the MCP executor
// reuse one Conn when their URL, transport and header set agree. The
// executor's headers also carry the call's resolved credential, so a
// call with credential headers gets a Conn of its own.
type MCPLoader struct {
	Pool          *mcpwire.Pool
	ClientName    string
	ClientVersion string
}

func NewMCPLoader(pool *mcpwire.Pool, clientName, clientVersion string) *MCPLoader {
	return &MCPLoader{Pool: pool, ClientName: clientName, ClientVersion: clientVersion}
}

func (l *MCPLoader) Load(ctx context.Context, src store.ToolSource) ([]runspec.ToolDefinition, []string, error) {
	var cfg MCPConfig
	if err := json.Unmarshal(src.Config, &cfg); err != nil {
		return nil, nil, fmt.Errorf("mcp source %s: invalid config: %w", src.Name, err)
	}
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("mcp source %s: missing url", src.Name)
	}
	transport := cfg.Transport
	if transport == "" {
		transport = mcpwire.TransportStreamableHTTP
	}

	key := mcpwire.Key{
		URL:       cfg.URL,
		Transport: transport,
		Headers:   mcpwire.CanonicalizeHeaders(cfg.AuthHeaders),
	}
	conn := l.Pool.Get(key, cfg.AuthHeaders)

	if _, err := conn.Initialize(ctx, l.ClientName, l.ClientVersion); err != nil {
		if transport == mcpwire.TransportStreamableHTTP {
			// Streamable HTTP failed; retry under the sse transport name.
			// Conn has no separate SSE transport: the retry repeats the
			// same JSON-RPC-over-HTTP-POST exchange on a new pooled Conn.
			key.Transport = mcpwire.TransportSSE
			conn = l.Pool.Get(key, cfg.AuthHeaders)
			if _, retryErr := conn.Initialize(ctx, l.ClientName, l.ClientVersion); retryErr != nil {
				return nil, nil, fmt.Errorf("mcp source %s: initialize failed on both transports: %w", src.Name, retryErr)
			}
			transport = mcpwire.TransportSSE
		} else {
			return nil, nil, fmt.Errorf("mcp source %s: initialize failed: %w", src.Name, err)
		}
	}

	listing, err := conn.ListTools(ctx)
	if err != nil {
		if mcpwire.IsReconnectable(err) {
			conn = l.Pool.Reconnect(key, cfg.AuthHeaders)
			if _, initErr := conn.Initialize(ctx, l.ClientName, l.ClientVersion); initErr != nil {
				return nil, nil, fmt.Errorf("mcp source %s: reconnect initialize failed: %w", src.Name, initErr)
			}
			listing, err = conn.ListTools(ctx)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("mcp source %s: tools/list failed: %w", src.Name, err)
		}
	}

	builder := toolpath.NewBuilder()
	var warnings []string
	tools := make([]runspec.ToolDefinition, 0, len(listing.Tools))
	for _, t := range listing.Tools {
		def, err := l.buildTool(src, cfg, transport, builder, t)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("mcp tool %q skipped: %v", t.Name, err))
			continue
		}
		tools = append(tools, def)
	}
	return tools, warnings, nil
}

func (l *MCPLoader) buildTool(
	src store.ToolSource,
	cfg MCPConfig,
	transport string,
	builder *toolpath.Builder,
	t mcpwire.ToolInfo,
) (runspec.ToolDefinition, error) {
	path := builder.Build(src.Name, t.Name)

	runSpec, err := runspec.Encode(runspec.KindMCP, runspec.MCPParams{
		URL:         cfg.URL,
		Transport:   transport,
		QueryParams: cfg.QueryParams,
		ToolName:    t.Name,
		AuthHeaders: cfg.AuthHeaders,
		Credential:  cfg.Credential,
	})
	if err != nil {
		return runspec.ToolDefinition{}, err
	}

	inputSchema := t.InputSchema
	if len(inputSchema) == 0 {
		inputSchema = json.RawMessage(`{"type":"object","properties":{}}`)
	}

	return runspec.ToolDefinition{
		Path:          path,
		PreferredPath: toolpath.PreferredPath(path),
		Source:        "mcp:" + src.Name,
		Approval:      runspec.ApprovalRequired,
		Description:   t.Description,
		Typing: runspec.Typing{
			InputSchema: inputSchema,
			InputHint:   toolpath.DisplayHint(inputSchema, nil),
		},
		Credential: cfg.Credential,
		RunSpec:    runSpec,
	}, nil
}
