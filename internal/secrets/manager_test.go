package secrets

import (
	"context"
	"sync"
	"testing"

	"filippo.io/age"

	"github.com/revittco/toolrt/internal/store"
)

type memSecretStore struct {
	mu   sync.Mutex
	blob map[string][]byte
}

func newMemSecretStore() *memSecretStore {
	return &memSecretStore{blob: make(map[string][]byte)}
}

func (m *memSecretStore) GetSecret(_ context.Context, sourceKey string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.blob[sourceKey]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v, nil
}

func (m *memSecretStore) PutSecret(_ context.Context, sourceKey string, encrypted []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob[sourceKey] = encrypted
	return nil
}

func (m *memSecretStore) DeleteSecret(_ context.Context, sourceKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blob, sourceKey)
	return nil
}

func newTestEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("generate identity: %v", err)
	}
	enc, err := NewAgeEncryptor(identity.String())
	if err != nil {
		t.Fatalf("NewAgeEncryptor: %v", err)
	}
	return enc
}

func TestPutGet_RoundTrips(t *testing.T) {
	s := newMemSecretStore()
	mgr := NewManager(s, newTestEncryptor(t))
	ctx := context.Background()

	if err := mgr.Put(ctx, "github.prod", []byte("ghp_supersecret")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := mgr.Get(ctx, "github.prod")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "ghp_supersecret" {
		t.Errorf("Get = %q, want ghp_supersecret", got)
	}
}

func TestGet_MissingReturnsNotFound(t *testing.T) {
	s := newMemSecretStore()
	mgr := NewManager(s, newTestEncryptor(t))

	_, err := mgr.Get(context.Background(), "absent")
	if err == nil {
		t.Fatal("expected an error for a missing secret")
	}
}

func TestDelete_RemovesSecret(t *testing.T) {
	s := newMemSecretStore()
	mgr := NewManager(s, newTestEncryptor(t))
	ctx := context.Background()

	if err := mgr.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := mgr.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := mgr.Get(ctx, "k"); err == nil {
		t.Error("expected an error after delete")
	}
}

func TestResolve_RejectsNonStaticMode(t *testing.T) {
	s := newMemSecretStore()
	mgr := NewManager(s, newTestEncryptor(t))

	_, err := mgr.Resolve(context.Background(), store.CredentialBinding{SourceKey: "k", Mode: "account"})
	if err == nil {
		t.Fatal("expected an error for a non-static binding mode")
	}
}

func TestResolve_DefaultsHeaderNameToAuthorization(t *testing.T) {
	s := newMemSecretStore()
	mgr := NewManager(s, newTestEncryptor(t))
	ctx := context.Background()

	if err := mgr.Put(ctx, "svc", []byte("Bearer abc123")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	cred, err := mgr.Resolve(ctx, store.CredentialBinding{SourceKey: "svc", Mode: "static"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cred.HeaderName != "Authorization" {
		t.Errorf("HeaderName = %q, want Authorization", cred.HeaderName)
	}
	if cred.HeaderValue != "Bearer abc123" {
		t.Errorf("HeaderValue = %q, want Bearer abc123", cred.HeaderValue)
	}
}

func TestResolve_UsesCustomHeaderName(t *testing.T) {
	s := newMemSecretStore()
	mgr := NewManager(s, newTestEncryptor(t))
	ctx := context.Background()

	if err := mgr.Put(ctx, "svc2", []byte("secret-api-key")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	cred, err := mgr.Resolve(ctx, store.CredentialBinding{SourceKey: "svc2", Mode: "static", HeaderName: "X-Api-Key"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cred.HeaderName != "X-Api-Key" {
		t.Errorf("HeaderName = %q, want X-Api-Key", cred.HeaderName)
	}
}
