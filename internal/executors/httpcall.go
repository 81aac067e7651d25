// Package executors implements the four non-builtin runspec.Runner
// kinds (spec.md §4.8): openapi, postman, graphql_raw/graphql_field,
// and mcp. Each factory closes over a shared *http.Client (or
// *mcpwire.Pool for MCP) and is registered into a runspec.ExecutorRegistry
// that runspec.Rehydrate dispatches through. Grounded on the teacher's
// internal/downstream/http_instance.go raw net/http request
// construction, generalized from "one MCP-over-HTTP instance" to "four
// transport kinds".
package executors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// mergeHeaders applies static authHeaders first, then the call's
// resolved credential header if present, so a per-call credential can
// override a source's static default (spec.md §4.8 "merge static and
// resolved credential headers").
func mergeHeaders(req *http.Request, authHeaders map[string]string, headerName, headerValue string) {
	for k, v := range authHeaders {
		req.Header.Set(k, v)
	}
	if headerName != "" {
		req.Header.Set(headerName, headerValue)
	}
}

// bodyHead truncates a response body for error messages (spec.md §4.8
// "HTTP <status> <text>: <body-head>").
const bodyHeadLimit = 512

func bodyHead(b []byte) string {
	if len(b) > bodyHeadLimit {
		return string(b[:bodyHeadLimit]) + "..."
	}
	return string(b)
}

// doRequest sends req and, on a non-2xx status, returns the spec's
// exact error wording. On success it decodes the response as JSON when
// the content type says so, else returns the raw text.
func doRequest(client *http.Client, req *http.Request) (json.RawMessage, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d %s: %s", resp.StatusCode, http.StatusText(resp.StatusCode), bodyHead(body))
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "json") {
		if !json.Valid(body) {
			return nil, fmt.Errorf("invalid json response: %s", bodyHead(body))
		}
		return json.RawMessage(body), nil
	}

	text, err := json.Marshal(string(body))
	if err != nil {
		return nil, fmt.Errorf("encode text response: %w", err)
	}
	return text, nil
}

// decodeInput unmarshals a call's raw JSON input into a generic map,
// tolerating an empty/absent input (no-argument tools).
func decodeInput(input json.RawMessage) (map[string]any, error) {
	if len(input) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(input, &m); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	return m, nil
}

// newJSONRequest builds a POST/PUT/PATCH-style request with a JSON body.
func newJSONRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}
