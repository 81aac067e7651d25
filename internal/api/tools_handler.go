package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/revittco/toolrt/internal/inventory"
)

// toolsHandler exposes getWorkspaceTools (spec.md §4.4) as a GET
// endpoint, grounded on the teacher's downstream_handler.go "list tools
// for a server" shape, generalized to whole-workspace inventory.
type toolsHandler struct {
	assembler *inventory.Assembler
}

type toolsResponse struct {
	Mode           inventory.Mode `json:"mode"`
	Tools          []toolDTO      `json:"tools"`
	Warnings       []string       `json:"warnings,omitempty"`
	TypesStorageID string         `json:"typesStorageId,omitempty"`
	Debug          inventory.Debug `json:"debug"`
}

type toolDTO struct {
	Path        string `json:"path"`
	Source      string `json:"source"`
	Approval    string `json:"approval"`
	Description string `json:"description"`
}

func (h *toolsHandler) list(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.PathValue("id")

	opts := inventory.Options{ActorID: r.URL.Query().Get("actorId")}
	if sec := r.URL.Query().Get("sourceTimeoutSeconds"); sec != "" {
		if n, err := strconv.Atoi(sec); err == nil {
			opts.SourceTimeout = time.Duration(n) * time.Second
		}
	}
	if r.URL.Query().Get("allowStaleOnMismatch") == "true" {
		opts.AllowStaleOnMismatch = true
	}
	if r.URL.Query().Get("skipCacheRead") == "true" {
		opts.SkipCacheRead = true
	}
	if r.URL.Query().Get("needTypes") == "true" {
		opts.NeedTypes = true
	}

	result, err := h.assembler.GetWorkspaceTools(r.Context(), workspaceID, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := toolsResponse{
		Mode: result.Debug.Mode, Warnings: result.Warnings,
		TypesStorageID: result.TypesStorageID, Debug: result.Debug,
	}
	for _, t := range result.Tools {
		resp.Tools = append(resp.Tools, toolDTO{
			Path: t.Path, Source: t.Source, Approval: t.Approval, Description: t.Description,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
