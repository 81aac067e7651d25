package openapi

import "github.com/getkin/kin-openapi/openapi3"

// InferredAuth describes an auth scheme derived from an OpenAPI
// document's securitySchemes (spec.md §4.1 step 5).
type InferredAuth struct {
	Type       string // bearer|basic|apiKey
	HeaderName string // set when Type == apiKey and In == header
	Mode       string // workspace|static
}

// InferAuth picks the first usable security scheme from the document's
// components and classifies it per spec.md §4.1 step 5:
// http/bearer -> bearer, http/basic -> basic, apiKey+in=header ->
// apiKey with header, oauth2|openIdConnect -> bearer. Schemes this
// runtime cannot express (apiKey in cookie/query, mutual TLS, etc.)
// are skipped in favor of the next candidate.
func InferAuth(doc *openapi3.T) *InferredAuth {
	if doc == nil || doc.Components == nil {
		return nil
	}
	// Deterministic order: iterate names in the order they appear in the
	// map is not stable in Go, so we scan twice by decreasing preference
	// rather than relying on iteration order for which scheme wins.
	schemes := doc.Components.SecuritySchemes

	if a := findScheme(schemes, "oauth2"); a != nil {
		return a
	}
	if a := findScheme(schemes, "openIdConnect"); a != nil {
		return a
	}
	if a := findHTTPScheme(schemes, "bearer"); a != nil {
		return a
	}
	if a := findHTTPScheme(schemes, "basic"); a != nil {
		return a
	}
	if a := findAPIKeyHeaderScheme(schemes); a != nil {
		return a
	}
	return nil
}

func findScheme(schemes openapi3.SecuritySchemes, typ string) *InferredAuth {
	for _, ref := range schemes {
		if ref == nil || ref.Value == nil {
			continue
		}
		if ref.Value.Type == typ {
			return &InferredAuth{Type: "bearer", Mode: "workspace"}
		}
	}
	return nil
}

func findHTTPScheme(schemes openapi3.SecuritySchemes, scheme string) *InferredAuth {
	for _, ref := range schemes {
		if ref == nil || ref.Value == nil {
			continue
		}
		if ref.Value.Type == "http" && ref.Value.Scheme == scheme {
			return &InferredAuth{Type: scheme, Mode: "workspace"}
		}
	}
	return nil
}

func findAPIKeyHeaderScheme(schemes openapi3.SecuritySchemes) *InferredAuth {
	for _, ref := range schemes {
		if ref == nil || ref.Value == nil {
			continue
		}
		if ref.Value.Type == "apiKey" && ref.Value.In == "header" {
			return &InferredAuth{Type: "apiKey", HeaderName: ref.Value.Name, Mode: "workspace"}
		}
	}
	return nil
}
