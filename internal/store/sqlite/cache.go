package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/revittco/toolrt/internal/store"
)

func (d *DB) GetCacheEntry(ctx context.Context, workspaceID string) (*store.CacheEntry, error) {
	var e store.CacheEntry
	var typesStorageID sql.NullString
	var updatedAt string
	err := d.q.QueryRowContext(ctx, `
		SELECT workspace_id, signature, storage_id, types_storage_id, tool_count, size_bytes, updated_at
		FROM cache_entries WHERE workspace_id = ?`, workspaceID,
	).Scan(&e.WorkspaceID, &e.Signature, &e.StorageID, &typesStorageID, &e.ToolCount, &e.SizeBytes, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.TypesStorageID = typesStorageID.String
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

// PutCacheEntry atomically replaces the cache row for a workspace
// (spec.md §4.4 step 7, "write snapshot atomically"). The blob itself is
// written by the caller via the blob store before this call; here we
// only swap the pointer row, which is what makes the swap atomic from a
// reader's point of view.
func (d *DB) PutCacheEntry(ctx context.Context, e *store.CacheEntry) error {
	e.UpdatedAt = time.Now().UTC()
	_, err := d.q.ExecContext(ctx, `
		INSERT INTO cache_entries (workspace_id, signature, storage_id, types_storage_id, tool_count, size_bytes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(workspace_id) DO UPDATE SET
			signature = excluded.signature,
			storage_id = excluded.storage_id,
			types_storage_id = excluded.types_storage_id,
			tool_count = excluded.tool_count,
			size_bytes = excluded.size_bytes,
			updated_at = excluded.updated_at`,
		e.WorkspaceID, e.Signature, e.StorageID, e.TypesStorageID, e.ToolCount, e.SizeBytes, formatTime(e.UpdatedAt),
	)
	return err
}

func (d *DB) GetOpenAPISpecCache(ctx context.Context, specURL string) (*store.OpenAPISpecCacheEntry, error) {
	var e store.OpenAPISpecCacheEntry
	var expiresAt string
	err := d.q.QueryRowContext(ctx, `
		SELECT spec_url, version, storage_id, size_bytes, expires_at
		FROM openapi_spec_cache WHERE spec_url = ?`, specURL,
	).Scan(&e.SpecURL, &e.Version, &e.StorageID, &e.SizeBytes, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.ExpiresAt = parseTime(expiresAt)
	if time.Now().UTC().After(e.ExpiresAt) {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (d *DB) PutOpenAPISpecCache(ctx context.Context, e *store.OpenAPISpecCacheEntry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 5 * time.Hour
	}
	e.ExpiresAt = time.Now().UTC().Add(ttl)
	_, err := d.q.ExecContext(ctx, `
		INSERT INTO openapi_spec_cache (spec_url, version, storage_id, size_bytes, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(spec_url) DO UPDATE SET
			version = excluded.version,
			storage_id = excluded.storage_id,
			size_bytes = excluded.size_bytes,
			expires_at = excluded.expires_at`,
		e.SpecURL, e.Version, e.StorageID, e.SizeBytes, formatTime(e.ExpiresAt),
	)
	return err
}
