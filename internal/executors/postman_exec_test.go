package executors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/revittco/toolrt/internal/runspec"
)

func TestPostmanRunner_InterpolatesAndMergesOverrides(t *testing.T) {
	var gotPath, gotQuery, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("limit")
		gotHeader = r.Header.Get("X-Env")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	spec, _ := runspec.Encode(runspec.KindPostman, runspec.PostmanParams{
		Method:    "GET",
		URL:       "{{baseUrl}}/widgets/{{widgetId}}",
		Headers:   map[string]string{"X-Env": "{{env}}"},
		Variables: map[string]string{"baseUrl": srv.URL, "env": "staging"},
	})
	runner := NewPostmanExecutorFactory(srv.Client())(spec)

	input, _ := json.Marshal(callerOverrides{
		Variables: map[string]string{"widgetId": "w7"},
		Query:     map[string]string{"limit": "10"},
	})
	_, err := runner.Run(ctxBG(), runspec.CallContext{}, input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotPath != "/widgets/w7" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "10" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotHeader != "staging" {
		t.Errorf("header = %q", gotHeader)
	}
}

func TestPostmanRunner_FailsOnUnresolvedURLVariable(t *testing.T) {
	spec, _ := runspec.Encode(runspec.KindPostman, runspec.PostmanParams{
		Method: "GET", URL: "{{baseUrl}}/widgets",
	})
	runner := NewPostmanExecutorFactory(http.DefaultClient)(spec)
	_, err := runner.Run(ctxBG(), runspec.CallContext{}, nil)
	if err == nil {
		t.Fatal("expected an unresolved-variable error")
	}
}

func TestPostmanRunner_UrlencodedBodyModeSetsContentType(t *testing.T) {
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	spec, _ := runspec.Encode(runspec.KindPostman, runspec.PostmanParams{
		Method: "POST", URL: srv.URL + "/submit", BodyMode: "urlencoded", Body: "name=widget",
	})
	runner := NewPostmanExecutorFactory(srv.Client())(spec)
	if _, err := runner.Run(ctxBG(), runspec.CallContext{}, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("content-type = %q", gotContentType)
	}
}
