// Package runspec models the "dynamic run closures -> tagged run-specs"
// design (spec.md §9): a live Tool carries an executable closure that
// cannot cross the cache/serialization boundary, so each closure's
// inputs are captured as one tagged variant and rehydrated into a live
// Runner by the executor the variant names. Grounded on the teacher's
// internal/gateway/protocol.go Tool/CallToolResult shapes (kept, moved
// to internal/mcpwire) and internal/downstream's per-instance-key
// sharing model, generalized from "one MCP instance kind" to "six
// runnable kinds".
package runspec

import "encoding/json"

// Kind tags which executor a Spec's fields belong to (spec.md §3
// "runSpec (serialized form; a tagged variant)").
type Kind string

const (
	KindOpenAPI      Kind = "openapi"
	KindMCP          Kind = "mcp"
	KindPostman      Kind = "postman"
	KindGraphQLRaw   Kind = "graphql_raw"
	KindGraphQLField Kind = "graphql_field"
	KindBuiltin      Kind = "builtin"
)

// CredentialSpec is the declarative credential binding carried on a
// Spec (spec.md §3 "credential"). Static-mode bindings never carry a
// raw secret value here; only the mode/type markers persist, per the
// invariant "Static-auth credentials never carry raw secrets in the
// serialized form".
type CredentialSpec struct {
	SourceKey  string `json:"sourceKey,omitempty"`
	Mode       string `json:"mode,omitempty"` // static|workspace|actor|account
	AuthType   string `json:"authType,omitempty"`
	HeaderName string `json:"headerName,omitempty"`
}

// Spec is the serialized tagged-union run-spec (spec.md §3 GLOSSARY
// "Run-spec"). Exactly one of the Kind-specific field groups is
// populated, matching Kind; json.RawMessage Params carries the
// kind-specific payload so Spec itself stays flat and
// (de)serialization never needs a custom UnmarshalJSON per field set.
type Spec struct {
	Kind   Kind            `json:"kind"`
	Params json.RawMessage `json:"params"`
}

// OpenAPIParams is the Kind == KindOpenAPI payload (spec.md §4.2
// "emit a tool with runSpec.kind = openapi carrying {baseUrl, method,
// pathTemplate, parameters, authHeaders(static), credentialSpec}").
type OpenAPIParams struct {
	BaseURL      string            `json:"baseUrl"`
	Method       string            `json:"method"`
	PathTemplate string            `json:"pathTemplate"`
	Parameters   []OpenAPIParam    `json:"parameters"`
	AuthHeaders  map[string]string `json:"authHeaders,omitempty"`
	Credential   *CredentialSpec   `json:"credentialSpec,omitempty"`
}

// OpenAPIParam is one materialized OpenAPI parameter as the executor
// needs it at call time.
type OpenAPIParam struct {
	Name          string `json:"name"`
	In            string `json:"in"`
	Required      bool   `json:"required"`
	Style         string `json:"style,omitempty"`
	Explode       bool   `json:"explode,omitempty"`
	AllowReserved bool   `json:"allowReserved,omitempty"`
}

// MCPParams is the Kind == KindMCP payload (spec.md §4.2 "emit one tool
// per entry with runSpec.kind = mcp carrying {url, transport,
// queryParams, toolName, authHeaders(static)}").
type MCPParams struct {
	URL         string            `json:"url"`
	Transport   string            `json:"transport"` // streamable-http|sse
	QueryParams map[string]string `json:"queryParams,omitempty"`
	ToolName    string            `json:"toolName"`
	AuthHeaders map[string]string `json:"authHeaders,omitempty"`
	Credential  *CredentialSpec   `json:"credentialSpec,omitempty"`
}

// PostmanParams is the Kind == KindPostman payload (spec.md §4.2
// "Postman loader ... emit a run-spec that records method, URL,
// headers, query entries, body (urlencoded|raw), variables, and static
// auth headers").
type PostmanParams struct {
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers,omitempty"`
	Query       map[string]string `json:"query,omitempty"`
	BodyMode    string            `json:"bodyMode,omitempty"` // urlencoded|raw
	Body        string            `json:"body,omitempty"`
	Variables   map[string]string `json:"variables,omitempty"`
	AuthHeaders map[string]string `json:"authHeaders,omitempty"`
	Credential  *CredentialSpec   `json:"credentialSpec,omitempty"`
}

// GraphQLRawParams is the Kind == KindGraphQLRaw payload: one tool per
// GraphQL endpoint that accepts a raw {query, variables} input
// (spec.md §4.2 "emit one graphql_raw tool for the endpoint").
type GraphQLRawParams struct {
	Endpoint    string            `json:"endpoint"`
	AuthHeaders map[string]string `json:"authHeaders,omitempty"`
	Credential  *CredentialSpec   `json:"credentialSpec,omitempty"`
}

// GraphQLFieldParams is the Kind == KindGraphQLField payload: a
// generated pseudo-tool per root Query/Mutation field (spec.md §4.2
// "one graphql_field pseudo-tool per root field ... carries a
// generated minimal selection set ... and its variable names").
type GraphQLFieldParams struct {
	Endpoint      string            `json:"endpoint"`
	FieldName     string            `json:"fieldName"`
	OperationType string            `json:"operationType"` // query|mutation
	SelectionSet  string            `json:"selectionSet"`
	VariableNames []string          `json:"variableNames,omitempty"`
	AuthHeaders   map[string]string `json:"authHeaders,omitempty"`
	Credential    *CredentialSpec   `json:"credentialSpec,omitempty"`
}

// BuiltinParams is the Kind == KindBuiltin payload: rehydration looks
// the tool up by path in a provided built-in map rather than carrying
// any call parameters (spec.md §4.3 "for builtin, look up the tool by
// path in the provided built-in map").
type BuiltinParams struct {
	Path string `json:"path"`
}

// Encode marshals a kind-specific payload into a Spec.
func Encode(kind Kind, params any) (Spec, error) {
	b, err := json.Marshal(params)
	if err != nil {
		return Spec{}, err
	}
	return Spec{Kind: kind, Params: b}, nil
}

// DecodeOpenAPI, DecodeMCP, ... unmarshal Spec.Params into the typed
// payload for the matching Kind. Callers should check Kind before
// calling the matching Decode* function; calling the wrong one simply
// returns whatever json.Unmarshal produces from mismatched fields.
func DecodeOpenAPI(s Spec) (OpenAPIParams, error) {
	var p OpenAPIParams
	err := json.Unmarshal(s.Params, &p)
	return p, err
}

func DecodeMCP(s Spec) (MCPParams, error) {
	var p MCPParams
	err := json.Unmarshal(s.Params, &p)
	return p, err
}

func DecodePostman(s Spec) (PostmanParams, error) {
	var p PostmanParams
	err := json.Unmarshal(s.Params, &p)
	return p, err
}

func DecodeGraphQLRaw(s Spec) (GraphQLRawParams, error) {
	var p GraphQLRawParams
	err := json.Unmarshal(s.Params, &p)
	return p, err
}

func DecodeGraphQLField(s Spec) (GraphQLFieldParams, error) {
	var p GraphQLFieldParams
	err := json.Unmarshal(s.Params, &p)
	return p, err
}

func DecodeBuiltin(s Spec) (BuiltinParams, error) {
	var p BuiltinParams
	err := json.Unmarshal(s.Params, &p)
	return p, err
}
