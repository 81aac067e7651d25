package executors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/revittco/toolrt/internal/runspec"
)

func TestGraphQLRawRunner_PostsQueryAndReturnsData(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"widget":{"id":"w1"}}}`))
	}))
	defer srv.Close()

	spec, _ := runspec.Encode(runspec.KindGraphQLRaw, runspec.GraphQLRawParams{Endpoint: srv.URL})
	runner := NewGraphQLExecutorFactory(srv.Client())(spec)

	input, _ := json.Marshal(graphqlRawInput{Query: "{ widget { id } }"})
	out, err := runner.Run(ctxBG(), runspec.CallContext{}, input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != `{"widget":{"id":"w1"}}` {
		t.Errorf("out = %s", out)
	}
	if gotBody["query"] != "{ widget { id } }" {
		t.Errorf("query not forwarded: %+v", gotBody)
	}
}

func TestGraphQLRawRunner_PartialSuccessIgnoresErrorsWhenDataPresent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"widget":{"id":"w1"}},"errors":[{"message":"deprecated field used"}]}`))
	}))
	defer srv.Close()

	spec, _ := runspec.Encode(runspec.KindGraphQLRaw, runspec.GraphQLRawParams{Endpoint: srv.URL})
	runner := NewGraphQLExecutorFactory(srv.Client())(spec)
	out, err := runner.Run(ctxBG(), runspec.CallContext{}, json.RawMessage(`{"query":"{ widget { id } }"}`))
	if err != nil {
		t.Fatalf("expected no error on partial success, got %v", err)
	}
	if string(out) != `{"widget":{"id":"w1"}}` {
		t.Errorf("out = %s", out)
	}
}

func TestGraphQLRawRunner_FatalErrorsWhenDataEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"not found"}]}`))
	}))
	defer srv.Close()

	spec, _ := runspec.Encode(runspec.KindGraphQLRaw, runspec.GraphQLRawParams{Endpoint: srv.URL})
	runner := NewGraphQLExecutorFactory(srv.Client())(spec)
	_, err := runner.Run(ctxBG(), runspec.CallContext{}, json.RawMessage(`{"query":"{ widget { id } }"}`))
	if err == nil {
		t.Fatal("expected an error when data is empty")
	}
}

func TestGraphQLFieldRunner_UnwrapsFieldAndWrapsBareInput(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"createWidget":{"id":"w2"}}}`))
	}))
	defer srv.Close()

	spec, _ := runspec.Encode(runspec.KindGraphQLField, runspec.GraphQLFieldParams{
		Endpoint: srv.URL, FieldName: "createWidget", OperationType: "mutation",
		SelectionSet: "{ id }", VariableNames: []string{"input"},
	})
	runner := NewGraphQLFieldExecutorFactory(srv.Client())(spec)

	out, err := runner.Run(ctxBG(), runspec.CallContext{}, json.RawMessage(`{"name":"gizmo"}`))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != `{"id":"w2"}` {
		t.Errorf("out = %s", out)
	}
	vars, _ := gotBody["variables"].(map[string]any)
	wrapped, _ := vars["input"].(map[string]any)
	if wrapped["name"] != "gizmo" {
		t.Errorf("expected bare input wrapped under {input: ...}, got variables=%+v", gotBody["variables"])
	}
}
