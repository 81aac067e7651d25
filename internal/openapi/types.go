// Package openapi prepares OpenAPI/Swagger documents into the compact
// form the tool-source loaders consume (spec.md §4.1 "OpenAPI
// Preparer"). Grounded on the teacher's internal/downstream package for
// the fetch-once/share-parsed-document discipline and
// internal/gateway/schema.go for compaction conventions; parsing itself
// is delegated to github.com/getkin/kin-openapi (surfaced by the
// mcpany-core manifest in the retrieved pack) instead of a hand-rolled
// OpenAPI reader.
package openapi

import (
	"encoding/json"

	"github.com/revittco/toolrt/internal/toolpath"
)

// DTSStatus values for PreparedSpec.DTSStatus (spec.md §4.1 contract).
const (
	DTSReady   = "ready"
	DTSFailed  = "failed"
	DTSSkipped = "skipped"
)

// PreparedSpec is the compact, post-bundle form of an OpenAPI document
// (spec.md GLOSSARY "PreparedSpec").
type PreparedSpec struct {
	Servers      []string
	Paths        []CompactedOperation
	DTS          string
	DTSStatus    string
	InferredAuth *InferredAuth
	RefHintTable toolpath.RefHintTable
	Warnings     []string
}

// CompactedOperation is one (path, method) pair materialized with
// merged parameters, resolved request/response schemas, and precomputed
// display hints (spec.md §4.1 step 6, §4.2 "OpenAPI loader").
type CompactedOperation struct {
	Method       string
	PathTemplate string
	OperationID  string
	Tag          string
	Summary      string
	Description  string
	Parameters   []CompactedParameter

	RequestBodySchema json.RawMessage
	RequestBodyHint   string

	ResponseSchema json.RawMessage
	ResponseHint   string
	ResponseIsVoid bool

	// HasGeneratedType is true when the typings generator produced a
	// declaration for this operation; when true, callers may omit the
	// raw schemas from the serialized tool and rely on the hint alone
	// (spec.md §4.1 step 4).
	HasGeneratedType bool
}

// CompactedParameter is a single OpenAPI parameter, preserving the
// metadata spec.md §4.1 step 6 requires callers keep
// ("in", "required", "style", "explode", "allowReserved", descriptions).
type CompactedParameter struct {
	Name          string
	In            string // query|path|header|cookie
	Required      bool
	Schema        json.RawMessage
	Style         string
	Explode       bool
	AllowReserved bool
	Description   string
}
