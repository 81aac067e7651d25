package api

import (
	"net/http"

	"github.com/revittco/toolrt/internal/invocation"
	"github.com/revittco/toolrt/internal/runtime"
)

// RouterDeps holds the dependencies NewRouter wires into handlers.
type RouterDeps struct {
	Host     *runtime.Host
	Pipeline *invocation.Pipeline
}

// NewRouter creates an http.Handler exposing the inventory, discovery,
// and invocation core over HTTP (spec.md §4.4/§4.5/§4.7), grounded on
// the teacher's internal/api/router.go method-pattern mux.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", healthCheck)

	tools := &toolsHandler{assembler: deps.Host.Assembler}
	mux.HandleFunc("GET /api/v1/workspaces/{id}/tools", tools.list)

	search := &searchHandler{host: deps.Host}
	mux.HandleFunc("GET /api/v1/workspaces/{id}/search", search.search)

	invoke := &invokeHandler{host: deps.Host, pipeline: deps.Pipeline}
	mux.HandleFunc("POST /api/v1/workspaces/{id}/invoke", invoke.invoke)

	return mux
}
