package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/revittco/toolrt/internal/store"
)

// UpsertToolCallRequested idempotently inserts a call at status
// "requested" keyed by (taskID, callID); re-invoking with the same IDs
// returns the already-persisted row unchanged (spec.md §4.7 step 1).
func (d *DB) UpsertToolCallRequested(ctx context.Context, c *store.ToolCallRecord) (*store.ToolCallRecord, error) {
	existing, err := d.GetToolCall(ctx, c.TaskID, c.CallID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	c.Status = "requested"
	c.CreatedAt = now
	c.UpdatedAt = now
	input := normalizeJSON(c.Input, "{}")

	_, err = d.q.ExecContext(ctx, `
		INSERT INTO tool_calls (task_id, call_id, status, tool_path, input, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.TaskID, c.CallID, c.Status, c.ToolPath, input,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return c, nil
}

func (d *DB) GetToolCall(ctx context.Context, taskID, callID string) (*store.ToolCallRecord, error) {
	var c store.ToolCallRecord
	var input, createdAt, updatedAt string
	var approvalID, result, errText sql.NullString
	err := d.q.QueryRowContext(ctx, `
		SELECT task_id, call_id, status, tool_path, input, approval_id, result, error_text, created_at, updated_at
		FROM tool_calls WHERE task_id = ? AND call_id = ?`, taskID, callID,
	).Scan(&c.TaskID, &c.CallID, &c.Status, &c.ToolPath, &input,
		&approvalID, &result, &errText, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Input = json.RawMessage(input)
	c.ApprovalID = approvalID.String
	if result.Valid {
		c.Result = json.RawMessage(result.String)
	}
	c.ErrorText = errText.String
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

func (d *DB) SetToolCallPendingApproval(ctx context.Context, taskID, callID, approvalID string) error {
	res, err := d.q.ExecContext(ctx, `
		UPDATE tool_calls SET status = 'pending_approval', approval_id = ?, updated_at = ?
		WHERE task_id = ? AND call_id = ?`,
		approvalID, formatTime(time.Now().UTC()), taskID, callID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (d *DB) MarkToolCallRunning(ctx context.Context, taskID, callID string) error {
	res, err := d.q.ExecContext(ctx, `
		UPDATE tool_calls SET status = 'running', updated_at = ?
		WHERE task_id = ? AND call_id = ?`,
		formatTime(time.Now().UTC()), taskID, callID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (d *DB) CompleteToolCall(ctx context.Context, taskID, callID string, result []byte) error {
	res, err := d.q.ExecContext(ctx, `
		UPDATE tool_calls SET status = 'completed', result = ?, updated_at = ?
		WHERE task_id = ? AND call_id = ?`,
		normalizeJSON(result, "null"), formatTime(time.Now().UTC()), taskID, callID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (d *DB) FailToolCall(ctx context.Context, taskID, callID, errText string) error {
	res, err := d.q.ExecContext(ctx, `
		UPDATE tool_calls SET status = 'failed', error_text = ?, updated_at = ?
		WHERE task_id = ? AND call_id = ?`,
		errText, formatTime(time.Now().UTC()), taskID, callID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (d *DB) DenyToolCall(ctx context.Context, taskID, callID, reason string) error {
	res, err := d.q.ExecContext(ctx, `
		UPDATE tool_calls SET status = 'denied', error_text = ?, updated_at = ?
		WHERE task_id = ? AND call_id = ?`,
		reason, formatTime(time.Now().UTC()), taskID, callID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}
