package api

import (
	"net/http"

	"github.com/revittco/toolrt/internal/discovery"
	"github.com/revittco/toolrt/internal/invocation"
)

// writeInvocationError maps invokeTool's sentinel and typed errors onto
// HTTP status codes a client can branch on without parsing message text
// (spec.md §4.7's sentinels are designed for in-process callers; this
// is the HTTP host's translation of them).
func writeInvocationError(w http.ResponseWriter, err error) {
	if approvalID, ok := invocation.IsApprovalPending(err); ok {
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":     "approval_pending",
			"approvalId": approvalID,
		})
		return
	}
	if _, ok := err.(*invocation.UnknownToolError); ok {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err == discovery.ErrRegistryNotReady {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeError(w, http.StatusUnprocessableEntity, err)
}
