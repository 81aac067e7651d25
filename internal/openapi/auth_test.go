package openapi

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

func TestInferAuth_Bearer(t *testing.T) {
	doc := loadInline(t, `{
		"openapi": "3.0.0", "info": {"title": "t", "version": "1"},
		"paths": {},
		"components": {
			"securitySchemes": {
				"bearerAuth": {"type": "http", "scheme": "bearer"}
			}
		}
	}`)
	auth := InferAuth(doc)
	if auth == nil || auth.Type != "bearer" || auth.Mode != "workspace" {
		t.Fatalf("got %+v", auth)
	}
}

func TestInferAuth_APIKeyHeader(t *testing.T) {
	doc := loadInline(t, `{
		"openapi": "3.0.0", "info": {"title": "t", "version": "1"},
		"paths": {},
		"components": {
			"securitySchemes": {
				"apiKeyAuth": {"type": "apiKey", "in": "header", "name": "X-Api-Key"}
			}
		}
	}`)
	auth := InferAuth(doc)
	if auth == nil || auth.Type != "apiKey" || auth.HeaderName != "X-Api-Key" {
		t.Fatalf("got %+v", auth)
	}
}

func TestInferAuth_NoSchemes(t *testing.T) {
	doc := &openapi3.T{}
	if got := InferAuth(doc); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}
