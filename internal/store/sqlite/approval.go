package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/revittco/toolrt/internal/store"
)

func (d *DB) CreateApproval(ctx context.Context, a *store.Approval) error {
	a.CreatedAt = time.Now().UTC()
	if a.Status == "" {
		a.Status = "pending"
	}
	input := normalizeJSON(a.Input, "{}")
	_, err := d.q.ExecContext(ctx, `
		INSERT INTO approvals (id, task_id, call_id, tool_path, input, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TaskID, a.CallID, a.ToolPath, input, a.Status, formatTime(a.CreatedAt),
	)
	return mapConstraintError(err)
}

func (d *DB) GetApproval(ctx context.Context, id string) (*store.Approval, error) {
	var a store.Approval
	var input, createdAt string
	var resolvedAt sql.NullString
	err := d.q.QueryRowContext(ctx, `
		SELECT id, task_id, call_id, tool_path, input, status, created_at, resolved_at
		FROM approvals WHERE id = ?`, id,
	).Scan(&a.ID, &a.TaskID, &a.CallID, &a.ToolPath, &input, &a.Status, &createdAt, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Input = json.RawMessage(input)
	a.CreatedAt = parseTime(createdAt)
	if resolvedAt.Valid {
		t := parseTime(resolvedAt.String)
		a.Resolved = &t
	}
	return &a, nil
}

func (d *DB) ResolveApproval(ctx context.Context, id, status string) error {
	res, err := d.q.ExecContext(ctx, `
		UPDATE approvals SET status = ?, resolved_at = ? WHERE id = ? AND status = 'pending'`,
		status, formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}
