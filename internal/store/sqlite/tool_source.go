package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/revittco/toolrt/internal/store"
)

func (d *DB) ListToolSources(ctx context.Context, workspaceID string) ([]store.ToolSource, error) {
	rows, err := d.q.QueryContext(ctx, `
		SELECT id, type, name, enabled, config, updated_at
		FROM tool_sources ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ToolSource
	for rows.Next() {
		var s store.ToolSource
		var enabled int
		var cfg, updatedAt string
		if err := rows.Scan(&s.ID, &s.Type, &s.Name, &enabled, &cfg, &updatedAt); err != nil {
			return nil, err
		}
		s.Enabled = enabled != 0
		s.Config = json.RawMessage(cfg)
		s.UpdatedAt = parseTime(updatedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) GetToolSource(ctx context.Context, id string) (*store.ToolSource, error) {
	var s store.ToolSource
	var enabled int
	var cfg, updatedAt string
	err := d.q.QueryRowContext(ctx, `
		SELECT id, type, name, enabled, config, updated_at
		FROM tool_sources WHERE id = ?`, id,
	).Scan(&s.ID, &s.Type, &s.Name, &enabled, &cfg, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Enabled = enabled != 0
	s.Config = json.RawMessage(cfg)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

func (d *DB) CreateToolSource(ctx context.Context, s *store.ToolSource) error {
	s.UpdatedAt = time.Now().UTC()
	cfg := normalizeJSON(s.Config, "{}")
	enabled := 0
	if s.Enabled {
		enabled = 1
	}
	_, err := d.q.ExecContext(ctx, `
		INSERT INTO tool_sources (id, type, name, enabled, config, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Type, s.Name, enabled, cfg, formatTime(s.UpdatedAt),
	)
	return mapConstraintError(err)
}

func (d *DB) UpdateToolSource(ctx context.Context, s *store.ToolSource) error {
	s.UpdatedAt = time.Now().UTC()
	cfg := normalizeJSON(s.Config, "{}")
	enabled := 0
	if s.Enabled {
		enabled = 1
	}
	res, err := d.q.ExecContext(ctx, `
		UPDATE tool_sources SET type = ?, name = ?, enabled = ?, config = ?, updated_at = ?
		WHERE id = ?`,
		s.Type, s.Name, enabled, cfg, formatTime(s.UpdatedAt), s.ID,
	)
	if err != nil {
		return mapConstraintError(err)
	}
	return checkRowsAffected(res)
}

func (d *DB) DeleteToolSource(ctx context.Context, id string) error {
	res, err := d.q.ExecContext(ctx, `DELETE FROM tool_sources WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}
