package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/revittco/toolrt/internal/openapi"
	"github.com/revittco/toolrt/internal/runspec"
	"github.com/revittco/toolrt/internal/store"
	"github.com/revittco/toolrt/internal/toolpath"
)

// OpenAPIConfig is the decoded store.ToolSource.Config for type
// "openapi" (spec.md §4.2 "OpenAPI loader").
type OpenAPIConfig struct {
	SpecURL           string                  `json:"specUrl"`
	AuthHeaders       map[string]string       `json:"authHeaders,omitempty"`
	Credential        *runspec.CredentialSpec `json:"credential,omitempty"`
	ApprovalOverrides map[string]string       `json:"approvalOverrides,omitempty"` // operationId -> auto|required
}

// OpenAPILoader compiles an OpenAPI source into ToolDefinitions, one
// per (path, method) operation (spec.md §4.2 "OpenAPI loader").
type OpenAPILoader struct {
	Preparer *openapi.Preparer
}

func NewOpenAPILoader(preparer *openapi.Preparer) *OpenAPILoader {
	return &OpenAPILoader{Preparer: preparer}
}

func (l *OpenAPILoader) Load(ctx context.Context, src store.ToolSource) ([]runspec.ToolDefinition, []string, error) {
	var cfg OpenAPIConfig
	if err := json.Unmarshal(src.Config, &cfg); err != nil {
		return nil, nil, fmt.Errorf("openapi source %s: invalid config: %w", src.Name, err)
	}
	if cfg.SpecURL == "" {
		return nil, nil, fmt.Errorf("openapi source %s: missing specUrl", src.Name)
	}

	prepared, err := l.Preparer.Prepare(ctx, cfg.SpecURL, nil, src.Name)
	if err != nil {
		return nil, nil, err
	}

	baseURL := ""
	if len(prepared.Servers) > 0 {
		baseURL = prepared.Servers[0]
	}

	builder := toolpath.NewBuilder()
	tools := make([]runspec.ToolDefinition, 0, len(prepared.Paths))
	for _, op := range prepared.Paths {
		def, err := l.buildTool(src, cfg, prepared, baseURL, op, builder)
		if err != nil {
			prepared.Warnings = append(prepared.Warnings, fmt.Sprintf("operation %s %s skipped: %v", op.Method, op.PathTemplate, err))
			continue
		}
		tools = append(tools, def)
	}
	return tools, prepared.Warnings, nil
}

func (l *OpenAPILoader) buildTool(
	src store.ToolSource,
	cfg OpenAPIConfig,
	prepared *openapi.PreparedSpec,
	baseURL string,
	op openapi.CompactedOperation,
	builder *toolpath.Builder,
) (runspec.ToolDefinition, error) {
	tag := toolpath.NormalizeTag(op.Tag)
	operationName := op.OperationID
	if operationName == "" {
		operationName = fmt.Sprintf("%s_%s", op.Method, op.PathTemplate)
	}
	operationName = toolpath.DedupeOperationPrefix(tag, operationName)
	path := builder.Build(src.Name, tag, operationName)

	inputSchema := bucketInputSchema(op)
	approval := openapi.DefaultApproval(op.Method)
	if override, ok := cfg.ApprovalOverrides[op.OperationID]; ok {
		approval = override
	}

	params := make([]runspec.OpenAPIParam, 0, len(op.Parameters))
	for _, p := range op.Parameters {
		params = append(params, runspec.OpenAPIParam{
			Name: p.Name, In: p.In, Required: p.Required,
			Style: p.Style, Explode: p.Explode, AllowReserved: p.AllowReserved,
		})
	}

	runSpec, err := runspec.Encode(runspec.KindOpenAPI, runspec.OpenAPIParams{
		BaseURL:      baseURL,
		Method:       op.Method,
		PathTemplate: op.PathTemplate,
		Parameters:   params,
		AuthHeaders:  cfg.AuthHeaders,
		Credential:   cfg.Credential,
	})
	if err != nil {
		return runspec.ToolDefinition{}, err
	}

	description := op.Summary
	if description == "" {
		description = op.Description
	}

	var typedRef *runspec.TypedRef
	if op.OperationID != "" {
		typedRef = &runspec.TypedRef{SourceKey: src.ID, OperationID: op.OperationID}
	}

	return runspec.ToolDefinition{
		Path:          path,
		PreferredPath: toolpath.PreferredPath(path),
		Source:        "openapi:" + src.Name,
		Approval:      approval,
		Description:   description,
		Typing: runspec.Typing{
			InputSchema:  inputSchema,
			OutputSchema: op.ResponseSchema,
			InputHint:    toolpath.DisplayHint(inputSchema, prepared.RefHintTable),
			OutputHint:   outputHint(op, prepared.RefHintTable),
			TypedRef:     typedRef,
		},
		Credential: cfg.Credential,
		RunSpec:    runSpec,
	}, nil
}

func outputHint(op openapi.CompactedOperation, refs toolpath.RefHintTable) string {
	if op.ResponseIsVoid {
		return toolpath.VoidHint
	}
	if op.ResponseHint != "" {
		return op.ResponseHint
	}
	return toolpath.DisplayHint(op.ResponseSchema, refs)
}

// bucketInputSchema groups parameters by "in" bucket plus the request
// body (spec.md §4.2 "derive input schema (parameters grouped by in
// bucket plus request body)").
func bucketInputSchema(op openapi.CompactedOperation) json.RawMessage {
	buckets := map[string]map[string]json.RawMessage{}
	required := map[string][]string{}

	for _, p := range op.Parameters {
		if _, ok := buckets[p.In]; !ok {
			buckets[p.In] = map[string]json.RawMessage{}
		}
		schema := p.Schema
		if len(schema) == 0 {
			schema = json.RawMessage(`{"type":"string"}`)
		}
		buckets[p.In][p.Name] = schema
		if p.Required {
			required[p.In] = append(required[p.In], p.Name)
		}
	}

	properties := map[string]any{}
	bucketNames := make([]string, 0, len(buckets))
	for name := range buckets {
		bucketNames = append(bucketNames, name)
	}
	sort.Strings(bucketNames)

	for _, name := range bucketNames {
		bucket := map[string]any{"type": "object", "properties": buckets[name]}
		if reqs := required[name]; len(reqs) > 0 {
			sort.Strings(reqs)
			bucket["required"] = reqs
		}
		properties[name] = bucket
	}
	if len(op.RequestBodySchema) > 0 {
		properties["body"] = json.RawMessage(op.RequestBodySchema)
	}

	if len(properties) == 0 {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	b, err := json.Marshal(map[string]any{"type": "object", "properties": properties})
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return b
}
