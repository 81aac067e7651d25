package events

import (
	"context"
	"testing"

	"github.com/revittco/toolrt/internal/store"
)

type fakeEventStore struct {
	events []*store.TaskEvent
}

func (f *fakeEventStore) CreateTaskEvent(ctx context.Context, e *store.TaskEvent) error {
	f.events = append(f.events, e)
	return nil
}

func TestEmit_PersistsAndPublishes(t *testing.T) {
	fs := &fakeEventStore{}
	bus := NewTaskEventBus()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	e := NewEmitter(fs, bus)
	err := e.Emit(context.Background(), "task1", "call1", TypeToolCallStarted, ToolCallStartedPayload{
		TaskID: "task1", CallID: "call1", ToolPath: "github.create_issue", Approval: "auto",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs.events) != 1 || fs.events[0].Type != TypeToolCallStarted {
		t.Fatalf("expected one persisted event, got %v", fs.events)
	}

	select {
	case got := <-sub:
		if got.Type != TypeToolCallStarted {
			t.Errorf("published event type = %s, want %s", got.Type, TypeToolCallStarted)
		}
	default:
		t.Error("expected event published to bus")
	}
}

func TestEmit_NilBusIsSafe(t *testing.T) {
	fs := &fakeEventStore{}
	e := NewEmitter(fs, nil)
	if err := e.Emit(context.Background(), "t", "c", TypeToolCallDenied, ToolCallTerminalPayload{TaskID: "t", CallID: "c"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
