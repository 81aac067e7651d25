package approval

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/revittco/toolrt/internal/store"
)

// Manager coordinates approval creation and resolution (spec.md §4.7
// step 8 "Approval state machine"). Unlike the teacher's
// internal/approval.Manager, which blocks a goroutine on a channel
// until resolution or timeout, invokeTool never blocks: a pending
// approval surfaces as a sentinel error the caller's host runtime
// catches and uses to pause the task (spec.md §5 "Approval pending
// surfaces a sentinel exception ... so the host runtime ... pauses
// rather than marks the task failed"), and a later invocation with the
// same callId re-enters the state machine and finds the approval
// already resolved. So Manager only does persistence and fan-out; it
// never waits.
type Manager struct {
	Store store.ApprovalStore
	Bus   *Bus
}

// NewManager creates a new approval manager.
func NewManager(s store.ApprovalStore, bus *Bus) *Manager {
	return &Manager{Store: s, Bus: bus}
}

// EnsureApproval fetches the approval at existingID if the call already
// has one linked, or creates a fresh approval_<uuid> otherwise (spec.md
// §4.7 step 8 "create or fetch an approval under the persisted call's
// id ... or a freshly generated approval_<uuid>").
func (m *Manager) EnsureApproval(ctx context.Context, existingID, taskID, callID, toolPath string, input []byte) (*store.Approval, error) {
	if existingID != "" {
		a, err := m.Store.GetApproval(ctx, existingID)
		if err != nil {
			return nil, fmt.Errorf("get approval %s: %w", existingID, err)
		}
		return a, nil
	}

	a := &store.Approval{
		ID:       "approval_" + uuid.NewString(),
		TaskID:   taskID,
		CallID:   callID,
		ToolPath: toolPath,
		Input:    input,
	}
	if err := m.Store.CreateApproval(ctx, a); err != nil {
		return nil, fmt.Errorf("create approval: %w", err)
	}
	if m.Bus != nil {
		m.Bus.Publish(Event{Type: "pending", Approval: a})
	}
	return a, nil
}

// Resolve marks a pending approval approved or denied.
func (m *Manager) Resolve(ctx context.Context, id string, approved bool) error {
	a, err := m.Store.GetApproval(ctx, id)
	if err != nil {
		return fmt.Errorf("get approval %s: %w", id, err)
	}
	if a.Status != "pending" {
		return ErrAlreadyResolved
	}

	status := "denied"
	if approved {
		status = "approved"
	}
	if err := m.Store.ResolveApproval(ctx, id, status); err != nil {
		return fmt.Errorf("resolve approval %s: %w", id, err)
	}

	a.Status = status
	if m.Bus != nil {
		m.Bus.Publish(Event{Type: "resolved", Approval: a})
	}
	return nil
}
