package api

import (
	"encoding/json"
	"net/http"

	"github.com/revittco/toolrt/internal/inventory"
	"github.com/revittco/toolrt/internal/invocation"
	"github.com/revittco/toolrt/internal/runtime"
)

// invokeHandler exposes invokeTool (spec.md §4.7) as a POST endpoint,
// grounded on the teacher's dryrun_handler.go request/response shape.
type invokeHandler struct {
	host     *runtime.Host
	pipeline *invocation.Pipeline
}

type invokeRequestBody struct {
	TaskID   string          `json:"taskId"`
	CallID   string          `json:"callId"`
	ActorID  string          `json:"actorId"`
	ClientID string          `json:"clientId"`
	ToolPath string          `json:"toolPath"`
	Input    json.RawMessage `json:"input"`
}

func (h *invokeHandler) invoke(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.PathValue("id")

	var body invokeRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.ToolPath == "" || body.CallID == "" {
		writeError(w, http.StatusBadRequest, errMissingField{"callId and toolPath are required"})
		return
	}

	result, idx, err := h.host.Tools(r.Context(), workspaceID, inventory.Options{ActorID: body.ActorID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.pipeline.Tools = result.Tools
	h.pipeline.Index = idx

	task := invocation.Task{
		TaskID: body.TaskID, WorkspaceID: workspaceID,
		ActorID: body.ActorID, ClientID: body.ClientID,
	}
	out, err := h.pipeline.InvokeTool(r.Context(), task, invocation.CallRequest{
		CallID: body.CallID, ToolPath: body.ToolPath, Input: body.Input,
	})
	if err != nil {
		writeInvocationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(out))
}

type errMissingField struct{ msg string }

func (e errMissingField) Error() string { return e.msg }
