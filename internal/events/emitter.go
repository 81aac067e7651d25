package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/revittco/toolrt/internal/store"
)

// Emitter persists a lifecycle event and fans it out to live
// subscribers, adapted from the teacher's internal/audit.Logger.Record.
type Emitter struct {
	Store store.EventStore
	Bus   *TaskEventBus
}

// NewEmitter builds an Emitter. bus may be nil (no live subscribers).
func NewEmitter(s store.EventStore, bus *TaskEventBus) *Emitter {
	return &Emitter{Store: s, Bus: bus}
}

// Emit persists a typed lifecycle event for (taskID, callID) and
// publishes it to the bus (spec.md §6 "createTaskEvent"; §5 "Ordering
// guarantees" requires callers to invoke this in the documented
// sequence per call — Emit itself does not reorder or buffer).
func (e *Emitter) Emit(ctx context.Context, taskID, callID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	evt := &store.TaskEvent{TaskID: taskID, CallID: callID, Type: eventType, Payload: data}
	if err := e.Store.CreateTaskEvent(ctx, evt); err != nil {
		return fmt.Errorf("create task event: %w", err)
	}

	slog.Debug("task event", "type", eventType, "taskId", taskID, "callId", callID)
	if e.Bus != nil {
		e.Bus.Publish(evt)
	}
	return nil
}
