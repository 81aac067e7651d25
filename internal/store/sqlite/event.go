package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/revittco/toolrt/internal/store"
)

func (d *DB) CreateTaskEvent(ctx context.Context, e *store.TaskEvent) error {
	if e.ID == "" {
		e.ID = "evt_" + uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()
	payload := normalizeJSON(e.Payload, "{}")
	_, err := d.q.ExecContext(ctx, `
		INSERT INTO task_events (id, task_id, call_id, type, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.TaskID, e.CallID, e.Type, payload, formatTime(e.CreatedAt),
	)
	return mapConstraintError(err)
}
