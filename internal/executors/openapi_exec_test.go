package executors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/revittco/toolrt/internal/runspec"
)

func TestOpenAPIRunner_SubstitutesPathAndQueryAndMergesHeaders(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("verbose")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"w1"}`))
	}))
	defer srv.Close()

	spec, err := runspec.Encode(runspec.KindOpenAPI, runspec.OpenAPIParams{
		BaseURL:      srv.URL,
		Method:       "GET",
		PathTemplate: "/widgets/{id}",
		Parameters: []runspec.OpenAPIParam{
			{Name: "id", In: "path", Required: true},
			{Name: "verbose", In: "query"},
		},
		AuthHeaders: map[string]string{"X-Default": "1"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	runner := NewOpenAPIExecutorFactory(srv.Client())(spec)
	call := runspec.CallContext{Credential: &runspec.ResolvedCredential{HeaderName: "Authorization", HeaderValue: "Bearer tok"}}
	out, err := runner.Run(ctxBG(), call, json.RawMessage(`{"id":"w1","verbose":"true"}`))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != `{"id":"w1"}` {
		t.Errorf("out = %s", out)
	}
	if gotPath != "/widgets/w1" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "true" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestOpenAPIRunner_SendsJSONBodyOnNonReadMethod(t *testing.T) {
	var gotBody map[string]any
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	spec, _ := runspec.Encode(runspec.KindOpenAPI, runspec.OpenAPIParams{
		BaseURL: srv.URL, Method: "POST", PathTemplate: "/widgets",
	})
	runner := NewOpenAPIExecutorFactory(srv.Client())(spec)
	_, err := runner.Run(ctxBG(), runspec.CallContext{}, json.RawMessage(`{"name":"gizmo"}`))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotContentType != "application/json" {
		t.Errorf("content-type = %q", gotContentType)
	}
	if gotBody["name"] != "gizmo" {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestOpenAPIRunner_NonSuccessStatusRaisesFormattedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("widget not found"))
	}))
	defer srv.Close()

	spec, _ := runspec.Encode(runspec.KindOpenAPI, runspec.OpenAPIParams{
		BaseURL: srv.URL, Method: "GET", PathTemplate: "/widgets/missing",
	})
	runner := NewOpenAPIExecutorFactory(srv.Client())(spec)
	_, err := runner.Run(ctxBG(), runspec.CallContext{}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	want := "HTTP 404 Not Found: widget not found"
	if err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
}

func TestOpenAPIRunner_MissingRequiredParameterFails(t *testing.T) {
	spec, _ := runspec.Encode(runspec.KindOpenAPI, runspec.OpenAPIParams{
		BaseURL: "https://api.test", Method: "GET", PathTemplate: "/widgets/{id}",
		Parameters: []runspec.OpenAPIParam{{Name: "id", In: "path", Required: true}},
	})
	runner := NewOpenAPIExecutorFactory(http.DefaultClient)(spec)
	_, err := runner.Run(ctxBG(), runspec.CallContext{}, json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected a missing-parameter error")
	}
}
