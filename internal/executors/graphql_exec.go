package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/revittco/toolrt/internal/runspec"
)

// graphQLError is one entry of a GraphQL response's errors array.
// Decoded by hand rather than through github.com/machinebox/graphql's
// Client.Run (used by internal/sources for introspection), because
// that call fails the request on any non-empty errors array; spec.md
// §4.8 needs the partial-success distinction instead (errors are only
// fatal when data carried nothing useful).
type graphQLError struct {
	Message string `json:"message"`
}

type graphqlRawRunner struct {
	params runspec.GraphQLRawParams
	client *http.Client
}

// NewGraphQLExecutorFactory returns the runspec.RunnerFactory for
// runspec.KindGraphQLRaw (spec.md §4.8 "GraphQL executor").
func NewGraphQLExecutorFactory(client *http.Client) runspec.RunnerFactory {
	return func(spec runspec.Spec) runspec.Runner {
		params, err := runspec.DecodeGraphQLRaw(spec)
		if err != nil {
			return failingRunner{err: fmt.Errorf("decode graphql_raw run-spec: %w", err)}
		}
		return graphqlRawRunner{params: params, client: client}
	}
}

type graphqlRawInput struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

func (r graphqlRawRunner) Run(ctx context.Context, call runspec.CallContext, input json.RawMessage) (json.RawMessage, error) {
	var in graphqlRawInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, fmt.Errorf("decode input: %w", err)
		}
	}
	return postGraphQL(ctx, r.client, r.params.Endpoint, r.params.AuthHeaders, call, in.Query, in.Variables)
}

// postGraphQL sends {query, variables} to endpoint and applies the
// "partial success" rule: result.errors only fails the call if data is
// empty/null/empty-array/empty-object (spec.md §4.8).
func postGraphQL(ctx context.Context, client *http.Client, endpoint string, authHeaders map[string]string, call runspec.CallContext, query string, variables map[string]any) (json.RawMessage, error) {
	req, err := newJSONRequest(ctx, http.MethodPost, endpoint, map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, err
	}
	headerName, headerValue := "", ""
	if call.Credential != nil {
		headerName, headerValue = call.Credential.HeaderName, call.Credential.HeaderValue
	}
	mergeHeaders(req, authHeaders, headerName, headerValue)

	raw, err := doRequest(client, req)
	if err != nil {
		return nil, err
	}

	var gqlResp struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors,omitempty"`
	}
	var decoded string
	if err := json.Unmarshal(raw, &decoded); err == nil {
		// doRequest returned a JSON-encoded text body (non-JSON content
		// type); re-decode the inner string as the actual GraphQL payload.
		if err := json.Unmarshal([]byte(decoded), &gqlResp); err != nil {
			return nil, fmt.Errorf("decode graphql response: %w", err)
		}
	} else if err := json.Unmarshal(raw, &gqlResp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}

	if len(gqlResp.Errors) > 0 && isEmptyData(gqlResp.Data) {
		msgs := make([]string, len(gqlResp.Errors))
		for i, e := range gqlResp.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("graphql error: %v", msgs)
	}
	return gqlResp.Data, nil
}

// isEmptyData reports whether data is null, absent, "{}", or "[]"
// (spec.md §4.8 "data is empty/null/empty-array/empty-object").
func isEmptyData(data json.RawMessage) bool {
	trimmed := string(data)
	switch trimmed {
	case "", "null", "{}", "[]":
		return true
	default:
		return false
	}
}

type graphqlFieldRunner struct {
	params runspec.GraphQLFieldParams
	client *http.Client
}

// NewGraphQLFieldExecutorFactory returns the runspec.RunnerFactory for
// runspec.KindGraphQLField: it builds the full operation text from the
// pseudo-tool's generated selection set, delegates to the same raw POST
// as graphql_raw, and unwraps the top-level response property matching
// the field name (spec.md §4.8 "graphql_field.run delegates to the raw
// executor and unwraps the top-level response property matching the
// operation name").
func NewGraphQLFieldExecutorFactory(client *http.Client) runspec.RunnerFactory {
	return func(spec runspec.Spec) runspec.Runner {
		params, err := runspec.DecodeGraphQLField(spec)
		if err != nil {
			return failingRunner{err: fmt.Errorf("decode graphql_field run-spec: %w", err)}
		}
		return graphqlFieldRunner{params: params, client: client}
	}
}

func (r graphqlFieldRunner) Run(ctx context.Context, call runspec.CallContext, input json.RawMessage) (json.RawMessage, error) {
	args, err := decodeInput(input)
	if err != nil {
		return nil, err
	}
	// A caller may pass a single input-shaped argument directly rather
	// than naming every variable (spec.md §4.8 "LLM convenience"); if
	// none of the declared variable names are present but the schema
	// wants exactly one named "input", wrap the whole argument set.
	if len(r.params.VariableNames) == 1 && r.params.VariableNames[0] == "input" {
		if _, ok := args["input"]; !ok && len(args) > 0 {
			args = map[string]any{"input": args}
		}
	}

	variables := make(map[string]any, len(r.params.VariableNames))
	for _, name := range r.params.VariableNames {
		if v, ok := args[name]; ok {
			variables[name] = v
		}
	}

	query := buildFieldOperation(r.params)
	data, err := postGraphQL(ctx, r.client, r.params.Endpoint, r.params.AuthHeaders, call, query, variables)
	if err != nil {
		return nil, err
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode graphql data: %w", err)
	}
	field, ok := obj[r.params.FieldName]
	if !ok {
		return nil, fmt.Errorf("graphql response missing field %q", r.params.FieldName)
	}
	return field, nil
}

// buildFieldOperation wraps a pseudo-tool's generated selection set in
// a named operation with one declared variable per VariableNames entry
// (the loader records only variable names, not their GraphQL types, so
// every variable is declared as JSON).
func buildFieldOperation(p runspec.GraphQLFieldParams) string {
	decl := ""
	call := ""
	for _, name := range p.VariableNames {
		decl += fmt.Sprintf("$%s: JSON, ", name)
		call += fmt.Sprintf("%s: $%s, ", name, name)
	}
	opType := p.OperationType
	if opType == "" {
		opType = "query"
	}
	return fmt.Sprintf("%s %s(%s) { %s(%s) %s }", opType, toOperationName(p.FieldName), trimTrailing(decl), p.FieldName, trimTrailing(call), p.SelectionSet)
}

func toOperationName(field string) string {
	if field == "" {
		return "Op"
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

func trimTrailing(s string) string {
	if len(s) >= 2 && s[len(s)-2:] == ", " {
		return s[:len(s)-2]
	}
	return s
}
