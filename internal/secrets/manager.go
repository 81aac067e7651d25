package secrets

import (
	"context"
	"fmt"

	"github.com/revittco/toolrt/internal/store"
)

// Manager resolves mode=static CredentialBinding values (spec.md §3
// "Tool.credential") by keying age-encrypted blobs on a ToolSource's
// sourceKey rather than an auth scope id.
type Manager struct {
	store     store.SecretStore
	encryptor *AgeEncryptor
}

// NewManager creates a secrets Manager.
func NewManager(s store.SecretStore, enc *AgeEncryptor) *Manager {
	return &Manager{store: s, encryptor: enc}
}

// Put encrypts and stores plaintext under sourceKey, replacing any
// existing value.
func (m *Manager) Put(ctx context.Context, sourceKey string, plaintext []byte) error {
	encrypted, err := m.encryptor.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt secret %s: %w", sourceKey, err)
	}
	if err := m.store.PutSecret(ctx, sourceKey, encrypted); err != nil {
		return fmt.Errorf("put secret %s: %w", sourceKey, err)
	}
	return nil
}

// Get decrypts and returns the secret stored under sourceKey.
func (m *Manager) Get(ctx context.Context, sourceKey string) ([]byte, error) {
	encrypted, err := m.store.GetSecret(ctx, sourceKey)
	if err != nil {
		return nil, fmt.Errorf("get secret %s: %w", sourceKey, err)
	}
	plaintext, err := m.encryptor.Decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("decrypt secret %s: %w", sourceKey, err)
	}
	return plaintext, nil
}

// Delete removes the secret stored under sourceKey.
func (m *Manager) Delete(ctx context.Context, sourceKey string) error {
	if err := m.store.DeleteSecret(ctx, sourceKey); err != nil {
		return fmt.Errorf("delete secret %s: %w", sourceKey, err)
	}
	return nil
}

// Resolve resolves a mode=static CredentialBinding into header material
// an executor can inject, decrypting the blob stored under its
// SourceKey. Non-static modes are not this package's concern (spec.md
// §6 resolveCredential handles workspace|actor|account modes).
func (m *Manager) Resolve(ctx context.Context, binding store.CredentialBinding) (*store.ResolvedCredential, error) {
	if binding.Mode != "static" {
		return nil, fmt.Errorf("secrets.Resolve: binding mode %q is not static", binding.Mode)
	}
	value, err := m.Get(ctx, binding.SourceKey)
	if err != nil {
		return nil, err
	}
	headerName := binding.HeaderName
	if headerName == "" {
		headerName = "Authorization"
	}
	return &store.ResolvedCredential{HeaderName: headerName, HeaderValue: string(value)}, nil
}
