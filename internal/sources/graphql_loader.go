package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/machinebox/graphql"

	"github.com/revittco/toolrt/internal/runspec"
	"github.com/revittco/toolrt/internal/store"
	"github.com/revittco/toolrt/internal/toolpath"
)

// GraphQLConfig is the decoded store.ToolSource.Config for type
// "graphql" (spec.md §4.2 "GraphQL loader").
type GraphQLConfig struct {
	Endpoint    string                  `json:"endpoint"`
	AuthHeaders map[string]string       `json:"authHeaders,omitempty"`
	Credential  *runspec.CredentialSpec `json:"credential,omitempty"`
}

// introspectionQuery requests includeDeprecated on fields, args, and
// input-object fields (spec.md §4.2 "an extended introspection query
// (with includeDeprecated on fields, args, and input-object fields)").
const introspectionQuery = `
query IntrospectSchema {
  __schema {
    queryType { name }
    mutationType { name }
    types {
      name
      kind
      fields(includeDeprecated: true) {
        name
        args(includeDeprecated: true) { name type { kind name ofType { kind name ofType { kind name } } } }
        type { kind name ofType { kind name ofType { kind name ofType { kind name } } } }
      }
      inputFields(includeDeprecated: true) {
        name
        type { kind name ofType { kind name } }
      }
    }
  }
}`

type introspectionResult struct {
	Schema struct {
		QueryType    *struct{ Name string } `json:"queryType"`
		MutationType *struct{ Name string } `json:"mutationType"`
		Types        []introspectionType    `json:"types"`
	} `json:"__schema"`
}

type introspectionType struct {
	Name   string               `json:"name"`
	Kind   string               `json:"kind"`
	Fields []introspectionField `json:"fields"`
}

type introspectionField struct {
	Name string           `json:"name"`
	Args []introspectArg  `json:"args"`
	Type introspectionRef `json:"type"`
}

type introspectArg struct {
	Name string           `json:"name"`
	Type introspectionRef `json:"type"`
}

type introspectionRef struct {
	Kind   string            `json:"kind"`
	Name   string            `json:"name"`
	OfType *introspectionRef `json:"ofType"`
}

// unwrap strips NON_NULL/LIST wrappers down to the named type.
func (r introspectionRef) unwrap() introspectionRef {
	cur := r
	for (cur.Kind == "NON_NULL" || cur.Kind == "LIST") && cur.OfType != nil {
		cur = *cur.OfType
	}
	return cur
}

// GraphQLLoader performs schema introspection and emits one graphql_raw
// tool plus one graphql_field pseudo-tool per root Query/Mutation field
// (spec.md §4.2 "GraphQL loader").
type GraphQLLoader struct{}

func NewGraphQLLoader() *GraphQLLoader { return &GraphQLLoader{} }

func (l *GraphQLLoader) Load(ctx context.Context, src store.ToolSource) ([]runspec.ToolDefinition, []string, error) {
	var cfg GraphQLConfig
	if err := json.Unmarshal(src.Config, &cfg); err != nil {
		return nil, nil, fmt.Errorf("graphql source %s: invalid config: %w", src.Name, err)
	}
	if cfg.Endpoint == "" {
		return nil, nil, fmt.Errorf("graphql source %s: missing endpoint", src.Name)
	}

	client := graphql.NewClient(cfg.Endpoint)
	req := graphql.NewRequest(introspectionQuery)
	for k, v := range cfg.AuthHeaders {
		req.Header.Set(k, v)
	}

	var result introspectionResult
	if err := client.Run(ctx, req, &result); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown argument") &&
			strings.Contains(strings.ToLower(err.Error()), "includedeprecated") {
			return nil, nil, fmt.Errorf("graphql source %s: introspection does not support includeDeprecated: %w", src.Name, err)
		}
		return nil, nil, fmt.Errorf("graphql source %s: introspection failed: %w", src.Name, err)
	}

	typesByName := map[string]introspectionType{}
	for _, t := range result.Schema.Types {
		typesByName[t.Name] = t
	}

	builder := toolpath.NewBuilder()
	var tools []runspec.ToolDefinition
	var warnings []string

	rawPath := builder.Build(src.Name, "raw")
	rawSpec, err := runspec.Encode(runspec.KindGraphQLRaw, runspec.GraphQLRawParams{
		Endpoint: cfg.Endpoint, AuthHeaders: cfg.AuthHeaders, Credential: cfg.Credential,
	})
	if err != nil {
		return nil, nil, err
	}
	tools = append(tools, runspec.ToolDefinition{
		Path:          rawPath,
		PreferredPath: toolpath.PreferredPath(rawPath),
		Source:        "graphql:" + src.Name,
		Approval:      runspec.ApprovalRequired,
		Description:   fmt.Sprintf("Raw GraphQL query/mutation against %s", src.Name),
		Typing: runspec.Typing{
			InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"},"variables":{"type":"object"}},"required":["query"]}`),
			InputHint:   "{ query: string, variables?: object }",
		},
		Credential: cfg.Credential,
		RunSpec:    rawSpec,
	})

	if result.Schema.QueryType != nil {
		fieldTools, w := l.buildFieldTools(src, cfg, typesByName, result.Schema.QueryType.Name, "query", builder)
		tools = append(tools, fieldTools...)
		warnings = append(warnings, w...)
	}
	if result.Schema.MutationType != nil {
		fieldTools, w := l.buildFieldTools(src, cfg, typesByName, result.Schema.MutationType.Name, "mutation", builder)
		tools = append(tools, fieldTools...)
		warnings = append(warnings, w...)
	}

	return tools, warnings, nil
}

func (l *GraphQLLoader) buildFieldTools(
	src store.ToolSource,
	cfg GraphQLConfig,
	types map[string]introspectionType,
	rootTypeName, operationType string,
	builder *toolpath.Builder,
) ([]runspec.ToolDefinition, []string) {
	root, ok := types[rootTypeName]
	if !ok {
		return nil, []string{fmt.Sprintf("root type %s not found in introspection result", rootTypeName)}
	}

	var tools []runspec.ToolDefinition
	var warnings []string
	for _, field := range root.Fields {
		selection, warn := buildSelectionSet(field.Type.unwrap(), types, 0)
		if warn != "" {
			warnings = append(warnings, fmt.Sprintf("field %s.%s: %s", rootTypeName, field.Name, warn))
		}

		varNames := make([]string, 0, len(field.Args))
		argFragments := make([]string, 0, len(field.Args))
		for _, a := range field.Args {
			varNames = append(varNames, a.Name)
			argFragments = append(argFragments, fmt.Sprintf("%s: $%s", a.Name, a.Name))
		}

		call := field.Name
		if len(argFragments) > 0 {
			call = fmt.Sprintf("%s(%s)", field.Name, strings.Join(argFragments, ", "))
		}
		if selection != "" {
			call = fmt.Sprintf("%s %s", call, selection)
		}

		path := builder.Build(src.Name, operationType, field.Name)
		runSpec, err := runspec.Encode(runspec.KindGraphQLField, runspec.GraphQLFieldParams{
			Endpoint:      cfg.Endpoint,
			FieldName:     field.Name,
			OperationType: operationType,
			SelectionSet:  call,
			VariableNames: varNames,
			AuthHeaders:   cfg.AuthHeaders,
			Credential:    cfg.Credential,
		})
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("field %s.%s: encode run-spec: %v", rootTypeName, field.Name, err))
			continue
		}

		approval := runspec.ApprovalAuto
		if operationType == "mutation" {
			approval = runspec.ApprovalRequired
		}

		tools = append(tools, runspec.ToolDefinition{
			Path:          path,
			PreferredPath: toolpath.PreferredPath(path),
			Source:        "graphql:" + src.Name,
			Approval:      approval,
			Description:   fmt.Sprintf("%s.%s", operationType, field.Name),
			Typing: runspec.Typing{
				InputSchema: argsToSchema(field.Args),
				InputHint:   argsToHint(field.Args),
			},
			Credential: cfg.Credential,
			RunSpec:    runSpec,
		})
	}
	return tools, warnings
}

// preferredLeafFields is the priority order for selecting a leaf field
// when generating a minimal selection set (spec.md §4.2 "prefers leaf
// fields named id|identifier|key|name|title|number|url|success").
var preferredLeafFields = []string{"id", "identifier", "key", "name", "title", "number", "url", "success"}

// connectionFields is the priority order for descending into a nested
// subtree (spec.md §4.2 "then a nested nodes|edges|items|… subtree").
var connectionFields = []string{"nodes", "edges", "items", "results", "data"}

// buildSelectionSet generates the minimal GraphQL selection set for a
// field's return type. SCALAR/ENUM types need none; OBJECT types need
// at least one leaf field to be syntactically valid.
func buildSelectionSet(typ introspectionRef, types map[string]introspectionType, depth int) (string, string) {
	if typ.Kind == "SCALAR" || typ.Kind == "ENUM" || typ.Name == "" {
		return "", ""
	}
	if depth > 3 {
		return "", "selection depth limit reached; returning no fields"
	}

	t, ok := types[typ.Name]
	if !ok || len(t.Fields) == 0 {
		return "", fmt.Sprintf("type %s has no introspectable fields", typ.Name)
	}

	fieldByName := map[string]introspectionField{}
	for _, f := range t.Fields {
		fieldByName[f.Name] = f
	}

	for _, name := range preferredLeafFields {
		if f, ok := fieldByName[name]; ok {
			unwrapped := f.Type.unwrap()
			if unwrapped.Kind == "SCALAR" || unwrapped.Kind == "ENUM" {
				return fmt.Sprintf("{ %s }", name), ""
			}
		}
	}

	for _, name := range connectionFields {
		if f, ok := fieldByName[name]; ok {
			sub, warn := buildSelectionSet(f.Type.unwrap(), types, depth+1)
			if sub != "" {
				return fmt.Sprintf("{ %s %s }", name, sub), warn
			}
		}
	}

	// Fall back to the first scalar/enum field on the type.
	for _, f := range t.Fields {
		unwrapped := f.Type.unwrap()
		if unwrapped.Kind == "SCALAR" || unwrapped.Kind == "ENUM" {
			return fmt.Sprintf("{ %s }", f.Name), ""
		}
	}
	return "", fmt.Sprintf("no scalar leaf field found on type %s", typ.Name)
}

func argsToSchema(args []introspectArg) json.RawMessage {
	properties := map[string]any{}
	for _, a := range args {
		properties[a.Name] = map[string]any{"type": scalarJSONType(a.Type.unwrap().Name)}
	}
	b, err := json.Marshal(map[string]any{"type": "object", "properties": properties})
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return b
}

func argsToHint(args []introspectArg) string {
	if len(args) == 0 {
		return toolpath.EmptyObjectHint
	}
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Name, scalarJSONType(a.Type.unwrap().Name)))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func scalarJSONType(graphqlScalar string) string {
	switch graphqlScalar {
	case "Int", "Float":
		return "number"
	case "Boolean":
		return "boolean"
	default:
		return "string"
	}
}
