package runspec

import (
	"context"
	"encoding/json"
	"testing"
)

func TestEncodeDecode_OpenAPIRoundTrip(t *testing.T) {
	params := OpenAPIParams{
		BaseURL:      "https://api.example.com",
		Method:       "GET",
		PathTemplate: "/domains/{id}",
		Parameters: []OpenAPIParam{
			{Name: "id", In: "path", Required: true},
		},
	}
	spec, err := Encode(KindOpenAPI, params)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if spec.Kind != KindOpenAPI {
		t.Fatalf("kind = %q", spec.Kind)
	}
	got, err := DecodeOpenAPI(spec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BaseURL != params.BaseURL || got.PathTemplate != params.PathTemplate {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if len(got.Parameters) != 1 || got.Parameters[0].Name != "id" {
		t.Fatalf("parameters lost in round-trip: %+v", got.Parameters)
	}
}

type stubRunner struct{ called bool }

func (s *stubRunner) Run(ctx context.Context, call CallContext, input json.RawMessage) (json.RawMessage, error) {
	s.called = true
	return json.RawMessage(`{"ok":true}`), nil
}

func TestRehydrate_UsesRegisteredFactory(t *testing.T) {
	spec, _ := Encode(KindOpenAPI, OpenAPIParams{BaseURL: "https://x", Method: "GET"})
	def := &ToolDefinition{Path: "x.get", RunSpec: spec}

	var built Spec
	registry := ExecutorRegistry{
		KindOpenAPI: func(s Spec) Runner {
			built = s
			return &stubRunner{}
		},
	}
	Rehydrate(def, registry, nil)

	if built.Kind != KindOpenAPI {
		t.Fatalf("factory not invoked with correct spec: %+v", built)
	}
	if def.Runner == nil {
		t.Fatal("expected a runner to be set")
	}
}

func TestRehydrate_UnknownKindFails(t *testing.T) {
	def := &ToolDefinition{Path: "x.get", RunSpec: Spec{Kind: "mystery"}}
	Rehydrate(def, ExecutorRegistry{}, nil)

	_, err := def.Runner.Run(context.Background(), CallContext{}, nil)
	if err == nil {
		t.Fatal("expected unknown-kind runner to fail on call")
	}
}

func TestRehydrate_BuiltinLooksUpByPath(t *testing.T) {
	spec, _ := Encode(KindBuiltin, BuiltinParams{Path: "discover"})
	def := &ToolDefinition{Path: "discover", RunSpec: spec}

	runner := &stubRunner{}
	builtins := map[string]Runner{"discover": runner}
	Rehydrate(def, nil, builtins)

	if def.Runner != runner {
		t.Fatal("expected builtin lookup to wire the exact registered runner")
	}
}

func TestRehydrate_BuiltinMissingFails(t *testing.T) {
	spec, _ := Encode(KindBuiltin, BuiltinParams{Path: "missing"})
	def := &ToolDefinition{Path: "missing", RunSpec: spec}
	Rehydrate(def, nil, map[string]Runner{})

	_, err := def.Runner.Run(context.Background(), CallContext{}, nil)
	if err == nil {
		t.Fatal("expected missing builtin to fail on call")
	}
}
