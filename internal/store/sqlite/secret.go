package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/revittco/toolrt/internal/store"
)

func (d *DB) GetSecret(ctx context.Context, sourceKey string) ([]byte, error) {
	var data []byte
	err := d.q.QueryRowContext(ctx,
		`SELECT encrypted_data FROM secret_blobs WHERE source_key = ?`, sourceKey,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return data, err
}

func (d *DB) PutSecret(ctx context.Context, sourceKey string, encrypted []byte) error {
	_, err := d.q.ExecContext(ctx, `
		INSERT INTO secret_blobs (source_key, encrypted_data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(source_key) DO UPDATE SET encrypted_data = excluded.encrypted_data, updated_at = excluded.updated_at`,
		sourceKey, encrypted, formatTime(time.Now().UTC()),
	)
	return err
}

func (d *DB) DeleteSecret(ctx context.Context, sourceKey string) error {
	_, err := d.q.ExecContext(ctx, `DELETE FROM secret_blobs WHERE source_key = ?`, sourceKey)
	return err
}
