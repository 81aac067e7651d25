package events

import (
	"sync"

	"github.com/revittco/toolrt/internal/store"
)

// Bus fans out published values of type T to live subscribers (e.g. an
// SSE stream watching a task) without blocking the publisher. Generic
// because both this package's own lifecycle-event stream
// (*store.TaskEvent) and internal/approval's pending/resolved
// notification stream (*store.Approval) need the identical
// subscribe/unsubscribe/best-effort-publish mechanics; adapted from the
// teacher's internal/audit/bus.go, generalized to one shared
// implementation instead of being hand-copied per consumer.
type Bus[T any] struct {
	mu   sync.RWMutex
	subs map[<-chan T]chan T
}

// NewBus creates a new event bus for values of type T.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[<-chan T]chan T)}
}

// Subscribe registers a new listener and returns a receive-only channel.
// The caller must call Unsubscribe when done.
func (b *Bus[T]) Subscribe() <-chan T {
	ch := make(chan T, 64)
	b.mu.Lock()
	b.subs[ch] = ch
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Bus[T]) Unsubscribe(ch <-chan T) {
	b.mu.Lock()
	if send, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(send)
	}
	b.mu.Unlock()
}

// Publish sends a value to all subscribers without blocking. Slow
// consumers that can't keep up will miss events.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// TaskEventBus is the lifecycle-event fan-out this package's own
// Emitter publishes through.
type TaskEventBus = Bus[*store.TaskEvent]

// NewTaskEventBus constructs a TaskEventBus.
func NewTaskEventBus() *TaskEventBus { return NewBus[*store.TaskEvent]() }
