package approval

import (
	"github.com/revittco/toolrt/internal/events"
	"github.com/revittco/toolrt/internal/store"
)

// Event is published when an approval is created or resolved.
type Event struct {
	Type     string          `json:"type"` // "pending" or "resolved"
	Approval *store.Approval `json:"approval"`
}

// Bus fans out approval events to live subscribers (e.g. a dashboard
// watching pending approvals). This is a distinct stream from
// internal/events' task-lifecycle event log (spec.md §6's
// tool.call.*/approval.requested events): approval.requested is a
// durable, once-per-call entry in that log, while "pending"/"resolved"
// here are a live approval-dashboard notification with no persisted
// record of its own. Both streams need identical
// subscribe/unsubscribe/best-effort-publish mechanics, so this reuses
// internal/events' generic Bus[T] rather than re-implementing the same
// channel fan-out a second time.
type Bus = events.Bus[Event]

// NewBus creates a new approval event bus.
func NewBus() *Bus { return events.NewBus[Event]() }
