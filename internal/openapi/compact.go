package openapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/revittco/toolrt/internal/toolpath"
)

// Compact walks a parsed, ref-resolved document into the flat operation
// list PreparedSpec carries (spec.md §4.1 step 6). The returned
// refHintTable covers every component schema so later hint rendering
// can reference large types by name instead of inlining them.
func Compact(doc *openapi3.T) ([]CompactedOperation, toolpath.RefHintTable, []string) {
	var warnings []string
	refHintTable := buildRefHintTable(doc)

	var ops []CompactedOperation
	paths := pathItems(doc)
	pathNames := make([]string, 0, len(paths))
	for path := range paths {
		pathNames = append(pathNames, path)
	}
	sort.Strings(pathNames)

	for _, path := range pathNames {
		item := paths[path]
		shared := item.Parameters
		for _, method := range verbOrder {
			op := operationForVerb(item, method)
			if op == nil {
				continue
			}
			cop, opWarnings := compactOperation(path, method, item, op, shared, refHintTable)
			ops = append(ops, cop)
			warnings = append(warnings, opWarnings...)
		}
	}
	return ops, refHintTable, warnings
}

func pathItems(doc *openapi3.T) map[string]*openapi3.PathItem {
	if doc.Paths == nil {
		return nil
	}
	return doc.Paths.Map()
}

// operationForVerb returns the Operation a PathItem defines for one of
// the seven HTTP verbs spec.md's loader iterates, or nil if undefined.
func operationForVerb(item *openapi3.PathItem, method string) *openapi3.Operation {
	switch method {
	case "GET":
		return item.Get
	case "PUT":
		return item.Put
	case "POST":
		return item.Post
	case "DELETE":
		return item.Delete
	case "OPTIONS":
		return item.Options
	case "HEAD":
		return item.Head
	case "PATCH":
		return item.Patch
	case "TRACE":
		return item.Trace
	default:
		return nil
	}
}

var verbOrder = []string{"GET", "PUT", "POST", "DELETE", "OPTIONS", "HEAD", "PATCH", "TRACE"}

func compactOperation(
	path, method string,
	item *openapi3.PathItem,
	op *openapi3.Operation,
	shared openapi3.Parameters,
	refs toolpath.RefHintTable,
) (CompactedOperation, []string) {
	tag := "default"
	if len(op.Tags) > 0 {
		tag = op.Tags[0]
	}

	params := materializeParameters(shared, op.Parameters)

	schemaName := schemaResourceName(method, path)
	reqSchema, reqHint, reqWarnings := compactRequestBody(op.RequestBody, refs, schemaName+"-request")
	respSchema, respHint, isVoid, respWarnings := compactResponse(op.Responses, refs, schemaName+"-response")

	warnings := append(reqWarnings, respWarnings...)

	return CompactedOperation{
		Method:            method,
		PathTemplate:      path,
		OperationID:       op.OperationID,
		Tag:               tag,
		Summary:           op.Summary,
		Description:       op.Description,
		Parameters:        params,
		RequestBodySchema: reqSchema,
		RequestBodyHint:   reqHint,
		ResponseSchema:    respSchema,
		ResponseHint:      respHint,
		ResponseIsVoid:    isVoid,
	}, warnings
}

// materializeParameters merges shared path-level parameters with
// operation-level ones, operation-level taking precedence on
// (name, in) collisions (spec.md §4.2 "materialize parameters, merging
// shared path-level and operation-level").
func materializeParameters(shared, operation openapi3.Parameters) []CompactedParameter {
	byKey := map[string]*openapi3.ParameterRef{}
	order := []string{}
	for _, p := range shared {
		if p == nil || p.Value == nil {
			continue
		}
		key := p.Value.In + ":" + p.Value.Name
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = p
	}
	for _, p := range operation {
		if p == nil || p.Value == nil {
			continue
		}
		key := p.Value.In + ":" + p.Value.Name
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = p
	}

	out := make([]CompactedParameter, 0, len(order))
	for _, key := range order {
		p := byKey[key].Value
		// Unset explode follows OpenAPI: true for form style (the default
		// style of query and cookie parameters), false otherwise.
		explode := p.Style == "form" || (p.Style == "" && (p.In == "query" || p.In == "cookie"))
		if p.Explode != nil {
			explode = *p.Explode
		}
		out = append(out, CompactedParameter{
			Name:          p.Name,
			In:            p.In,
			Required:      p.Required,
			Schema:        marshalSchemaRef(p.Schema),
			Style:         p.Style,
			Explode:       explode,
			AllowReserved: p.AllowReserved,
			Description:   p.Description,
		})
	}
	return out
}

// schemaResourceName builds a resource identifier safe to pass to
// jsonschema.Compiler.AddResource, which treats the name as a URI: raw
// path templates carry "{"/"}"/spaces that would otherwise make an
// invalid or surprising one.
func schemaResourceName(method, path string) string {
	replacer := strings.NewReplacer(" ", "-", "{", "", "}", "", "/", "-")
	return "mem://schemas/" + strings.ToLower(method) + replacer.Replace(path)
}

func compactRequestBody(ref *openapi3.RequestBodyRef, refs toolpath.RefHintTable, schemaName string) (json.RawMessage, string, []string) {
	if ref == nil || ref.Value == nil {
		return nil, "", nil
	}
	schema := firstJSONMediaSchema(ref.Value.Content)
	if schema == nil {
		return nil, "", nil
	}
	raw := marshalSchemaRef(schema)
	return compactSchemaHint(raw, refs, schemaName)
}

// compactSchemaHint validates a loader-supplied schema fragment against
// its own meta-schema (internal/toolpath.ValidateSchemaDocument) before
// DisplayHint is trusted to render it. A malformed fragment degrades to
// the "any" hint with a warning instead of silently rendering whatever
// garbage DisplayHint's best-effort walk produces for it.
func compactSchemaHint(raw json.RawMessage, refs toolpath.RefHintTable, schemaName string) (json.RawMessage, string, []string) {
	if len(raw) == 0 {
		return raw, "any", nil
	}
	if !isBareRef(raw) {
		if err := toolpath.ValidateSchemaDocument(schemaName, raw); err != nil {
			return raw, "any", []string{fmt.Sprintf("schema %s failed validation, hint degraded to any: %v", schemaName, err)}
		}
	}
	return raw, toolpath.DisplayHint(raw, refs), nil
}

// isBareRef reports whether raw is marshalSchemaRef's "{$ref: name}"
// pointer shorthand rather than an inlined schema document: those carry
// no validatable body of their own, DisplayHint resolves them against
// refHintTable instead.
func isBareRef(raw json.RawMessage) bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	_, ok := m["$ref"]
	return ok && len(m) == 1
}

// compactResponse picks the first 2xx response's content schema
// (spec.md §4.1 step 6, §8 "OpenAPI 204 output"). A response with no
// content (204/205) yields the fixed "void" hint.
func compactResponse(responses *openapi3.Responses, refs toolpath.RefHintTable, schemaName string) (json.RawMessage, string, bool, []string) {
	if responses == nil {
		return nil, toolpath.VoidHint, true, nil
	}
	codes := make([]string, 0, 8)
	byCode := responses.Map()
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		n, err := strconv.Atoi(code)
		if err != nil || n < 200 || n >= 300 {
			continue
		}
		ref := byCode[code]
		if ref == nil || ref.Value == nil {
			continue
		}
		if n == 204 || n == 205 {
			return nil, toolpath.VoidHint, true, nil
		}
		schema := firstJSONMediaSchema(ref.Value.Content)
		if schema == nil {
			return nil, toolpath.VoidHint, true, nil
		}
		raw := marshalSchemaRef(schema)
		hintRaw, hint, warnings := compactSchemaHint(raw, refs, schemaName)
		return hintRaw, hint, false, warnings
	}
	return nil, toolpath.VoidHint, true, nil
}

func firstJSONMediaSchema(content openapi3.Content) *openapi3.SchemaRef {
	if content == nil {
		return nil
	}
	if mt, ok := content["application/json"]; ok && mt != nil {
		return mt.Schema
	}
	// Fall back to the first media type in a deterministic order when
	// application/json isn't offered.
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if content[k] != nil {
			return content[k].Schema
		}
	}
	return nil
}

func marshalSchemaRef(ref *openapi3.SchemaRef) json.RawMessage {
	if ref == nil {
		return nil
	}
	if ref.Ref != "" {
		name := ref.Ref[strings.LastIndex(ref.Ref, "/")+1:]
		b, _ := json.Marshal(map[string]string{"$ref": "#/components/schemas/" + name})
		return b
	}
	if ref.Value == nil {
		return nil
	}
	b, err := ref.Value.MarshalJSON()
	if err != nil {
		return nil
	}
	return b
}

func buildRefHintTable(doc *openapi3.T) toolpath.RefHintTable {
	if doc.Components == nil || doc.Components.Schemas == nil {
		return toolpath.RefHintTable{}
	}
	raw := make(map[string]json.RawMessage, len(doc.Components.Schemas))
	for name, ref := range doc.Components.Schemas {
		if ref == nil || ref.Value == nil {
			continue
		}
		b, err := ref.Value.MarshalJSON()
		if err != nil {
			continue
		}
		raw[name] = b
	}
	return toolpath.BuildRefHintTable(raw)
}

// DefaultApproval implements spec.md §3's method-class default:
// GET/HEAD/OPTIONS -> auto, everything else -> required.
func DefaultApproval(method string) string {
	switch strings.ToUpper(method) {
	case "GET", "HEAD", "OPTIONS":
		return "auto"
	default:
		return "required"
	}
}

// VerbOrder is the deterministic verb iteration order compactOperation
// relies on for reproducible path-collision suffixing.
func VerbOrder() []string { return append([]string(nil), verbOrder...) }
