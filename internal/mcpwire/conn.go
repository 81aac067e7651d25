package mcpwire

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrAuthRequired indicates the downstream server returned 401 and
// needs a fresh credential (spec.md §4.2 MCP loader "resolve via
// credential provider before connect").
var ErrAuthRequired = errors.New("mcp server requires authentication")

// Transport names recorded in a Key. The MCP loader tries
// streamable-http first and retries under sse; Conn itself sends the
// same HTTP POST requests whichever name it was created with.
const (
	TransportStreamableHTTP = "streamable-http"
	TransportSSE            = "sse"
)

// Key identifies a shared connection: one live Conn per distinct
// (url, transport, merged-headers) triple across the process, reused
// by every tool that resolves to the same downstream server (spec.md
// §4.2 "the rehydrator shares one connection per (url, transport,
// merged-headers) key across the process").
type Key struct {
	URL       string
	Transport string
	Headers   string // canonicalized header set, see CanonicalizeHeaders
}

// CanonicalizeHeaders renders a header map into a stable string so it
// can participate in a Key; order-independent and case-insensitive on
// header names.
func CanonicalizeHeaders(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}
	keys := make([]string, 0, len(headers))
	lowered := make(map[string]string, len(headers))
	for k, v := range headers {
		lk := strings.ToLower(k)
		keys = append(keys, lk)
		lowered[lk] = v
	}
	sortStrings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(lowered[k])
		b.WriteByte(';')
	}
	return b.String()
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// reconnectablePattern matches transport errors the executor should
// retry once after a reconnect (spec.md §4.2 "transparently reconnects
// on transport errors matching /socket|closed|ECONNRESET|fetch
// failed/i").
var reconnectablePattern = regexp.MustCompile(`(?i)socket|closed|ECONNRESET|fetch failed`)

// IsReconnectable reports whether err looks like a transient transport
// failure that a reconnect-and-retry can recover from.
func IsReconnectable(err error) bool {
	return err != nil && reconnectablePattern.MatchString(err.Error())
}

// Conn is one shared MCP connection over Streamable HTTP, with a
// best-effort SSE response reader for servers that stream replies.
// Grounded verbatim on the teacher's internal/downstream/http_instance.go
// HTTPInstance (JSON-RPC-over-HTTP-POST, session-id capture, SSE
// fallback reader), generalized from "gateway-owned downstream
// instance" to "pool entry any caller can share".
type Conn struct {
	url       string
	transport string
	headers   map[string]string
	client    *http.Client

	mu        sync.Mutex
	sessionID string
	reqID     atomic.Int64
}

func newConn(url, transport string, headers map[string]string) *Conn {
	return &Conn{
		url:       url,
		transport: transport,
		headers:   headers,
		client:    &http.Client{},
	}
}

// Initialize performs the MCP initialize handshake and sends the
// notifications/initialized notification.
func (c *Conn) Initialize(ctx context.Context, clientName, clientVersion string) (*InitializeResult, error) {
	params, _ := json.Marshal(InitializeParams{
		ProtocolVersion: "2024-11-05",
		Capabilities:    map[string]any{},
		ClientInfo:      ClientInfo{Name: clientName, Version: clientVersion},
	})
	raw, err := c.call(ctx, "initialize", params, true)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	var result InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode initialize result: %w", err)
	}

	// Notification, no reply expected.
	_, _ = c.call(ctx, "notifications/initialized", nil, false)
	return &result, nil
}

// ListTools calls tools/list.
func (c *Conn) ListTools(ctx context.Context) (*ListToolsResult, error) {
	raw, err := c.call(ctx, "tools/list", json.RawMessage(`{}`), true)
	if err != nil {
		return nil, err
	}
	var result ListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode tools/list result: %w", err)
	}
	return &result, nil
}

// CallTool calls tools/call.
func (c *Conn) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*CallToolResult, error) {
	params, _ := json.Marshal(CallToolParams{Name: name, Arguments: arguments})
	raw, err := c.call(ctx, "tools/call", params, true)
	if err != nil {
		return nil, err
	}
	var result CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode tools/call result: %w", err)
	}
	return &result, nil
}

func (c *Conn) call(ctx context.Context, method string, params json.RawMessage, wantsReply bool) (json.RawMessage, error) {
	req := Request{JSONRPC: "2.0", Method: method, Params: params}
	if wantsReply {
		id := c.reqID.Add(1)
		req.ID = json.RawMessage(fmt.Sprintf("%d", id))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	c.mu.Lock()
	sid := c.sessionID
	c.mu.Unlock()
	if sid != "" {
		httpReq.Header.Set("Mcp-Session-Id", sid)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if v := resp.Header.Get("Mcp-Session-Id"); v != "" {
		c.mu.Lock()
		c.sessionID = v
		c.mu.Unlock()
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrAuthRequired
	}
	if !wantsReply {
		if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
			return nil, nil
		}
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("notification failed (%d): %s", resp.StatusCode, b)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, b)
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return readSSEResult(resp.Body)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func readSSEResult(body io.Reader) (json.RawMessage, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		var rpcResp Response
		if err := json.Unmarshal([]byte(data), &rpcResp); err != nil {
			continue
		}
		if rpcResp.Error != nil {
			return nil, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
		}
		if rpcResp.Result != nil {
			return rpcResp.Result, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sse stream: %w", err)
	}
	return nil, fmt.Errorf("no result in sse stream")
}

// Pool shares one Conn per Key across the process (spec.md §5 "MCP
// connections are shared per (url, transport, headers) across the
// process lifetime of the host").
type Pool struct {
	mu    sync.Mutex
	conns map[Key]*Conn
}

func NewPool() *Pool {
	return &Pool{conns: map[Key]*Conn{}}
}

// Get returns the shared Conn for key, creating one if absent.
func (p *Pool) Get(key Key, headers map[string]string) *Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.conns[key]; ok {
		return c
	}
	c := newConn(key.URL, key.Transport, headers)
	p.conns[key] = c
	return c
}

// Reconnect replaces the pooled Conn for key with a fresh one and
// returns it; later Gets for key return the new Conn (spec.md §4.2
// "transparently reconnects on transport errors").
func (p *Pool) Reconnect(key Key, headers map[string]string) *Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := newConn(key.URL, key.Transport, headers)
	p.conns[key] = c
	return c
}
