package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dop251/goja"

	"github.com/revittco/toolrt/internal/runspec"
	"github.com/revittco/toolrt/internal/store"
	"github.com/revittco/toolrt/internal/toolpath"
)

// PostmanConfig is the decoded store.ToolSource.Config for type
// "postman" (spec.md §4.2 "Postman loader (spec prefixed with
// postman:)").
type PostmanConfig struct {
	CollectionURL string                  `json:"collectionUrl"`
	ProxyURL      string                  `json:"proxyUrl,omitempty"` // default: Postman's ws proxy
	AuthHeaders   map[string]string       `json:"authHeaders,omitempty"`
	Credential    *runspec.CredentialSpec `json:"credential,omitempty"`
}

const defaultPostmanProxy = "https://proxy.postman-echo.com/proxy"

// postmanCollection mirrors the subset of Postman's collection v2.1
// schema this loader needs.
type postmanCollection struct {
	Info struct {
		Name string `json:"name"`
	} `json:"info"`
	Item     []postmanItem     `json:"item"`
	Variable []postmanVariable `json:"variable"`
}

type postmanItem struct {
	Name    string          `json:"name"`
	Item    []postmanItem   `json:"item"` // present for folders
	Request *postmanRequest `json:"request"`
}

type postmanRequest struct {
	Method string `json:"method"`
	Header []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"header"`
	URL struct {
		Raw   string `json:"raw"`
		Query []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"query"`
	} `json:"url"`
	Body *struct {
		Mode       string `json:"mode"`
		Raw        string `json:"raw"`
		URLEncoded []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"urlencoded"`
	} `json:"body"`
}

type postmanVariable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PostmanLoader fetches a Postman collection through a configured
// proxy, flattens its folder tree, and emits one tool per request
// (spec.md §4.2).
type PostmanLoader struct {
	HTTPClient *http.Client
}

func NewPostmanLoader(client *http.Client) *PostmanLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &PostmanLoader{HTTPClient: client}
}

func (l *PostmanLoader) Load(ctx context.Context, src store.ToolSource) ([]runspec.ToolDefinition, []string, error) {
	var cfg PostmanConfig
	if err := json.Unmarshal(src.Config, &cfg); err != nil {
		return nil, nil, fmt.Errorf("postman source %s: invalid config: %w", src.Name, err)
	}
	if cfg.CollectionURL == "" {
		return nil, nil, fmt.Errorf("postman source %s: missing collectionUrl", src.Name)
	}
	proxy := cfg.ProxyURL
	if proxy == "" {
		proxy = defaultPostmanProxy
	}

	collection, err := l.fetch(ctx, proxy, cfg.CollectionURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postman source %s: %w", src.Name, err)
	}

	variables := resolveVariables(collection.Variable)

	builder := toolpath.NewBuilder()
	var warnings []string
	var tools []runspec.ToolDefinition
	walkPostmanItems(collection.Item, nil, func(pathSegments []string, item postmanItem) {
		if item.Request == nil {
			return
		}
		def, err := l.buildTool(src, cfg, builder, pathSegments, item, variables)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("request %q skipped: %v", item.Name, err))
			return
		}
		tools = append(tools, def)
	})

	return tools, warnings, nil
}

func walkPostmanItems(items []postmanItem, prefix []string, visit func([]string, postmanItem)) {
	for _, item := range items {
		segs := append(append([]string{}, prefix...), item.Name)
		if len(item.Item) > 0 {
			walkPostmanItems(item.Item, segs, visit)
			continue
		}
		visit(segs, item)
	}
}

func (l *PostmanLoader) buildTool(
	src store.ToolSource,
	cfg PostmanConfig,
	builder *toolpath.Builder,
	pathSegments []string,
	item postmanItem,
	variables map[string]string,
) (runspec.ToolDefinition, error) {
	req := item.Request
	segments := append([]string{src.Name}, pathSegments...)
	path := builder.Build(segments...)

	headers := map[string]string{}
	for _, h := range req.Header {
		headers[h.Key] = h.Value
	}
	query := map[string]string{}
	for _, q := range req.URL.Query {
		query[q.Key] = q.Value
	}

	bodyMode, body := "", ""
	if req.Body != nil {
		bodyMode = req.Body.Mode
		switch req.Body.Mode {
		case "raw":
			body = req.Body.Raw
		case "urlencoded":
			parts := make([]string, 0, len(req.Body.URLEncoded))
			for _, kv := range req.Body.URLEncoded {
				parts = append(parts, kv.Key+"="+kv.Value)
			}
			body = strings.Join(parts, "&")
		}
	}

	runSpec, err := runspec.Encode(runspec.KindPostman, runspec.PostmanParams{
		Method:      strings.ToUpper(req.Method),
		URL:         req.URL.Raw,
		Headers:     headers,
		Query:       query,
		BodyMode:    bodyMode,
		Body:        body,
		Variables:   variables,
		AuthHeaders: cfg.AuthHeaders,
		Credential:  cfg.Credential,
	})
	if err != nil {
		return runspec.ToolDefinition{}, err
	}

	approval := runspec.ApprovalAuto
	if strings.ToUpper(req.Method) != "GET" && strings.ToUpper(req.Method) != "HEAD" {
		approval = runspec.ApprovalRequired
	}

	return runspec.ToolDefinition{
		Path:          path,
		PreferredPath: toolpath.PreferredPath(path),
		Source:        "postman:" + src.Name,
		Approval:      approval,
		Description:   item.Name,
		Typing: runspec.Typing{
			InputSchema: json.RawMessage(`{"type":"object","properties":{"variables":{"type":"object"}}}`),
			InputHint:   "{ variables?: { [key: string]: string } }",
		},
		Credential: cfg.Credential,
		RunSpec:    runSpec,
	}, nil
}

func (l *PostmanLoader) fetch(ctx context.Context, proxy, collectionURL string) (*postmanCollection, error) {
	target := collectionURL
	if proxy != "" {
		q := url.Values{"url": {collectionURL}}
		target = proxy + "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch collection: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch collection: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read collection body: %w", err)
	}

	var collection postmanCollection
	if err := json.Unmarshal(body, &collection); err != nil {
		return nil, fmt.Errorf("parse collection: %w", err)
	}
	return &collection, nil
}

// resolveVariables builds the collection's variable scope, evaluating
// Postman dynamic-variable expressions (e.g. "{{$randomInt}}",
// "{{$timestamp}}") through a real JS sandbox rather than a hand-rolled
// expression mini-language, seeding each dynamic variable with one
// concrete sample value at compile time (spec.md §4.2 scope is
// "collection+request variable scope"; the per-call re-randomization
// Postman itself does isn't reproducible in a cached inventory anyway,
// so one representative value is baked into the run-spec instead).
func resolveVariables(vars []postmanVariable) map[string]string {
	out := make(map[string]string, len(vars))
	vm := goja.New()
	for _, v := range vars {
		out[v.Key] = evaluateDynamicVariable(vm, v.Value)
	}
	return out
}

var postmanDynamicHelpers = map[string]string{
	"$randomInt":       "Math.floor(Math.random() * 1000)",
	"$timestamp":       "Math.floor(Date.now() / 1000)",
	"$guid":            `'00000000-0000-4000-8000-000000000000'`,
	"$isoTimestamp":    "new Date(0).toISOString()",
	"$randomUUID":      `'00000000-0000-4000-8000-000000000000'`,
	"$randomFirstName": `'Alex'`,
	"$randomEmail":     `'alex@example.com'`,
}

func evaluateDynamicVariable(vm *goja.Runtime, value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "{{$") || !strings.HasSuffix(trimmed, "}}") {
		return value
	}
	name := strings.TrimSuffix(strings.TrimPrefix(trimmed, "{{"), "}}")
	expr, ok := postmanDynamicHelpers[name]
	if !ok {
		return value
	}
	result, err := vm.RunString(expr)
	if err != nil {
		return value
	}
	return result.String()
}
