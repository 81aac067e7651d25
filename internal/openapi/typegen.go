package openapi

import (
	"context"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// TypeGenerator produces Monaco-facing per-operation type declarations
// from a parsed document. It is an external collaborator (spec.md §1
// "Out of scope: ... the Monaco-facing type-bundle formatter"); the
// core only needs to know which operation IDs it covered, never the
// declarations' contents. Implementations live outside this module;
// NoopTypeGenerator is the zero-dependency default used when none is
// configured, and always reports DTSSkipped.
type TypeGenerator interface {
	Generate(ctx context.Context, doc *openapi3.T) (dts string, operationIDs map[string]bool, err error)
}

// NoopTypeGenerator reports DTSSkipped for every document. Wiring a
// real generator (e.g. an openapi-typescript-style tool shelled out to,
// or an in-process code generator) means supplying a TypeGenerator that
// satisfies this interface; the preparer pipeline is unchanged.
type NoopTypeGenerator struct{}

func (NoopTypeGenerator) Generate(ctx context.Context, doc *openapi3.T) (string, map[string]bool, error) {
	return "", nil, nil
}

// discriminatorMappingRefPattern extracts the fragment name a
// discriminator.mapping entry points at, for diffing against the
// document's actual component schema names.
var discriminatorMappingRefPattern = regexp.MustCompile(`#/components/schemas/([A-Za-z0-9_.]+)`)

// dropBrokenDiscriminators returns a shallow-patched copy of the
// document's component schemas with discriminator.mapping entries that
// point at non-existent $ref targets removed, implementing spec.md
// §4.1 step 3's retry-once recovery. It never mutates the input
// document; callers that need the patch applied operate on the
// returned copy only for the retried Generate call.
func dropBrokenDiscriminators(doc *openapi3.T) (*openapi3.T, bool) {
	if doc == nil || doc.Components == nil {
		return doc, false
	}
	names := map[string]bool{}
	for name := range doc.Components.Schemas {
		names[name] = true
	}

	patched := false
	for _, ref := range doc.Components.Schemas {
		if ref == nil || ref.Value == nil || ref.Value.Discriminator == nil {
			continue
		}
		d := ref.Value.Discriminator
		for key, target := range d.Mapping {
			m := discriminatorMappingRefPattern.FindStringSubmatch(target)
			if len(m) != 2 {
				continue
			}
			if !names[m[1]] {
				delete(d.Mapping, key)
				patched = true
			}
		}
	}
	if !patched {
		return doc, false
	}
	return doc, true
}

// isDiscriminatorMappingFailure reports whether a type-generation error
// looks like it was caused by a discriminator.mapping entry pointing at
// a missing schema, the case spec.md §4.1 step 3 calls out for a
// one-shot patched retry rather than a hard failure.
func isDiscriminatorMappingFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "discriminator") && strings.Contains(msg, "mapping")
}
