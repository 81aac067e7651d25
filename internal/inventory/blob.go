package inventory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
)

// BlobStore is the host's content-addressable blob storage (spec.md §6
// "Blob storage: store(blob)->storageId, get(storageId)->blob|null,
// getUrl(storageId)->url|null"). The core only consumes this
// collaborator; ownership of the actual storage backend (S3, disk,
// whatever the host uses) is explicitly out of scope, same as database
// ownership, so only a typed interface plus an in-memory reference
// implementation live here.
type BlobStore interface {
	Store(ctx context.Context, blob []byte) (storageID string, err error)
	Get(ctx context.Context, storageID string) ([]byte, error)
	Delete(ctx context.Context, storageID string) error
	GetURL(ctx context.Context, storageID string) (string, error)
}

// MemoryBlobStore is a process-local BlobStore, useful for tests and
// single-process deployments. Not durable across restarts.
type MemoryBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: map[string][]byte{}}
}

func (m *MemoryBlobStore) Store(ctx context.Context, blob []byte) (string, error) {
	id, err := randomStorageID()
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(blob))
	copy(cp, blob)
	m.blobs[id] = cp
	return id, nil
}

func (m *MemoryBlobStore) Get(ctx context.Context, storageID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[storageID]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func (m *MemoryBlobStore) Delete(ctx context.Context, storageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, storageID)
	return nil
}

func (m *MemoryBlobStore) GetURL(ctx context.Context, storageID string) (string, error) {
	return "memory://" + storageID, nil
}

func randomStorageID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate storage id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
