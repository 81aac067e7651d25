package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/revittco/toolrt/internal/runspec"
)

// templateVar matches a Postman {{variable}} placeholder.
var templateVar = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

type postmanRunner struct {
	params runspec.PostmanParams
	client *http.Client
}

// NewPostmanExecutorFactory returns the runspec.RunnerFactory for
// runspec.KindPostman, grounded on spec.md §4.8's "Postman executor"
// paragraph: interpolate {{var}} templates against collection ⊕
// request ⊕ caller.variables, fail on an unresolved required URL
// variable, merge query/header overrides, and pick a content-type
// default from the body mode.
func NewPostmanExecutorFactory(client *http.Client) runspec.RunnerFactory {
	return func(spec runspec.Spec) runspec.Runner {
		params, err := runspec.DecodePostman(spec)
		if err != nil {
			return failingRunner{err: fmt.Errorf("decode postman run-spec: %w", err)}
		}
		return postmanRunner{params: params, client: client}
	}
}

// callerOverrides is the shape a Postman tool's input carries: extra
// variable bindings plus optional query/header overrides for this one
// call (spec.md §4.8 "merge query and header overrides").
type callerOverrides struct {
	Variables map[string]string `json:"variables"`
	Query     map[string]string `json:"query"`
	Headers   map[string]string `json:"headers"`
}

func (r postmanRunner) Run(ctx context.Context, call runspec.CallContext, input json.RawMessage) (json.RawMessage, error) {
	var over callerOverrides
	if len(input) > 0 {
		if err := json.Unmarshal(input, &over); err != nil {
			return nil, fmt.Errorf("decode input: %w", err)
		}
	}

	vars := map[string]string{}
	for k, v := range r.params.Variables {
		vars[k] = v
	}
	for k, v := range over.Variables {
		vars[k] = v
	}

	resolvedURL, missing := interpolate(r.params.URL, vars)
	if len(missing) > 0 {
		return nil, fmt.Errorf("unresolved required url variable(s): %s", strings.Join(missing, ", "))
	}

	query := url.Values{}
	for k, v := range r.params.Query {
		val, _ := interpolate(v, vars)
		query.Set(k, val)
	}
	for k, v := range over.Query {
		query.Set(k, v)
	}
	if enc := query.Encode(); enc != "" {
		if strings.Contains(resolvedURL, "?") {
			resolvedURL += "&" + enc
		} else {
			resolvedURL += "?" + enc
		}
	}

	var bodyReader *strings.Reader
	body, _ := interpolate(r.params.Body, vars)
	bodyReader = strings.NewReader(body)

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(r.params.Method), resolvedURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != "" {
		switch r.params.BodyMode {
		case "urlencoded":
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		default:
			req.Header.Set("Content-Type", "application/json")
		}
	}
	req.Header.Set("Accept", "application/json")

	for k, v := range r.params.Headers {
		val, _ := interpolate(v, vars)
		req.Header.Set(k, val)
	}
	for k, v := range over.Headers {
		req.Header.Set(k, v)
	}

	headerName, headerValue := "", ""
	if call.Credential != nil {
		headerName, headerValue = call.Credential.HeaderName, call.Credential.HeaderValue
	}
	mergeHeaders(req, r.params.AuthHeaders, headerName, headerValue)

	return doRequest(r.client, req)
}

// interpolate substitutes every {{var}} placeholder in s from vars,
// returning the names of any placeholder that had no binding.
func interpolate(s string, vars map[string]string) (string, []string) {
	var missing []string
	out := templateVar.ReplaceAllStringFunc(s, func(match string) string {
		name := templateVar.FindStringSubmatch(match)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		missing = append(missing, name)
		return match
	})
	return out, missing
}
