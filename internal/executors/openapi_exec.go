package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/revittco/toolrt/internal/runspec"
)

// readMethods never carry a request body (spec.md §4.8 "non-read
// methods whose remaining body object is non-empty").
var readMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodHead:   true,
	http.MethodDelete: true,
}

// bodyInputKey is the reserved top-level input key an OpenAPI tool's
// caller uses for the request body; every other key is matched against
// a declared path/query parameter by name.
const bodyInputKey = "body"

type openAPIRunner struct {
	params runspec.OpenAPIParams
	client *http.Client
}

// NewOpenAPIExecutorFactory returns the runspec.RunnerFactory for
// runspec.KindOpenAPI, grounded on spec.md §4.8's "OpenAPI executor"
// paragraph: substitute path parameters (URL-encoded), fold query
// parameters into the URL, merge headers, JSON-encode a non-empty body
// on non-read methods, and classify the response by content-type.
func NewOpenAPIExecutorFactory(client *http.Client) runspec.RunnerFactory {
	return func(spec runspec.Spec) runspec.Runner {
		params, err := runspec.DecodeOpenAPI(spec)
		if err != nil {
			return failingRunner{err: fmt.Errorf("decode openapi run-spec: %w", err)}
		}
		return openAPIRunner{params: params, client: client}
	}
}

func (r openAPIRunner) Run(ctx context.Context, call runspec.CallContext, input json.RawMessage) (json.RawMessage, error) {
	args, err := decodeInput(input)
	if err != nil {
		return nil, err
	}

	path := r.params.PathTemplate
	query := url.Values{}
	var body map[string]any

	consumed := map[string]bool{bodyInputKey: true}
	for _, p := range r.params.Parameters {
		consumed[p.Name] = true
		v, ok := args[p.Name]
		if !ok {
			if p.Required {
				return nil, fmt.Errorf("missing required parameter %q", p.Name)
			}
			continue
		}
		switch p.In {
		case "path":
			path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(fmt.Sprint(v)))
		case "query":
			addQueryValue(query, p.Name, v, p.Explode)
		case "header":
			// header parameters are applied below, alongside authHeaders.
		}
	}

	method := strings.ToUpper(r.params.Method)
	if raw, ok := args[bodyInputKey]; ok {
		if m, ok := raw.(map[string]any); ok {
			body = m
		}
	} else if !readMethods[method] {
		// No explicit "body" key: fall back to whatever input fields
		// were not consumed as path/query/header parameters.
		rest := map[string]any{}
		for k, v := range args {
			if !consumed[k] {
				rest[k] = v
			}
		}
		if len(rest) > 0 {
			body = rest
		}
	}

	full := r.params.BaseURL + path
	if enc := query.Encode(); enc != "" {
		if strings.Contains(full, "?") {
			full += "&" + enc
		} else {
			full += "?" + enc
		}
	}

	var req *http.Request
	if !readMethods[method] && len(body) > 0 {
		req, err = newJSONRequest(ctx, method, full, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, full, nil)
		if err == nil {
			req.Header.Set("Accept", "application/json")
		}
	}
	if err != nil {
		return nil, err
	}

	for _, p := range r.params.Parameters {
		if p.In != "header" {
			continue
		}
		if v, ok := args[p.Name]; ok {
			req.Header.Set(p.Name, fmt.Sprint(v))
		}
	}

	headerName, headerValue := "", ""
	if call.Credential != nil {
		headerName, headerValue = call.Credential.HeaderName, call.Credential.HeaderValue
	}
	mergeHeaders(req, r.params.AuthHeaders, headerName, headerValue)

	return doRequest(r.client, req)
}

// addQueryValue folds a parameter value into query using the simple
// form style: explode=true (the default) repeats the key per element
// of an array value; explode=false joins elements with commas.
func addQueryValue(query url.Values, name string, v any, explode bool) {
	arr, ok := v.([]any)
	if !ok {
		query.Set(name, fmt.Sprint(v))
		return
	}
	if !explode {
		parts := make([]string, len(arr))
		for i, e := range arr {
			parts[i] = fmt.Sprint(e)
		}
		query.Set(name, strings.Join(parts, ","))
		return
	}
	for _, e := range arr {
		query.Add(name, fmt.Sprint(e))
	}
}

type failingRunner struct{ err error }

func (f failingRunner) Run(context.Context, runspec.CallContext, json.RawMessage) (json.RawMessage, error) {
	return nil, f.err
}
