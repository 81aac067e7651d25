package api

import (
	"net/http"
	"strconv"

	"github.com/revittco/toolrt/internal/inventory"
	"github.com/revittco/toolrt/internal/runtime"
)

// searchHandler exposes the discover built-in over plain query
// parameters, for clients that would rather not shape a tool-call
// envelope just to search (spec.md §4.5's ranking, reachable directly).
type searchHandler struct {
	host *runtime.Host
}

type searchResponse struct {
	BestPath *string        `json:"bestPath"`
	Total    int            `json:"total"`
	Results  []searchResult `json:"results"`
}

type searchResult struct {
	Path  string `json:"path"`
	Score int    `json:"score"`
}

func (h *searchHandler) search(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.PathValue("id")
	q := r.URL.Query()
	limit := 10
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	_, idx, err := h.host.Tools(r.Context(), workspaceID, inventory.Options{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := idx.Search(q.Get("query"), q.Get("namespace"), limit)
	resp := searchResponse{BestPath: out.BestPath, Total: out.Total}
	for _, res := range out.Results {
		resp.Results = append(resp.Results, searchResult{Path: res.Entry.Path, Score: res.Score})
	}
	writeJSON(w, http.StatusOK, resp)
}
