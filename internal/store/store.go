package store

import (
	"context"
	"time"
)

// Store is the composite interface for all data access the core needs.
// spec.md §6 lists these as host collaborators ("Database: ..."); this
// interface is the typed contract, with internal/store/sqlite as one
// concrete implementation.
type Store interface {
	ToolSourceStore
	PolicyStore
	ToolCallStore
	ApprovalStore
	CacheStore
	EventStore
	Tx(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
	Close() error
}

// ToolSourceStore manages ToolSource records (spec.md §6 listToolSources).
type ToolSourceStore interface {
	ListToolSources(ctx context.Context, workspaceID string) ([]ToolSource, error)
	GetToolSource(ctx context.Context, id string) (*ToolSource, error)
	CreateToolSource(ctx context.Context, s *ToolSource) error
	UpdateToolSource(ctx context.Context, s *ToolSource) error
	DeleteToolSource(ctx context.Context, id string) error
}

// PolicyStore manages PolicyRecord records (spec.md §6 listAccessPolicies).
type PolicyStore interface {
	ListAccessPolicies(ctx context.Context, callContext string) ([]PolicyRecord, error)
}

// ToolCallStore manages ToolCallRecord records (spec.md §6
// upsertToolCallRequested, setToolCallPendingApproval).
type ToolCallStore interface {
	UpsertToolCallRequested(ctx context.Context, c *ToolCallRecord) (*ToolCallRecord, error)
	GetToolCall(ctx context.Context, taskID, callID string) (*ToolCallRecord, error)
	SetToolCallPendingApproval(ctx context.Context, taskID, callID, approvalID string) error
	CompleteToolCall(ctx context.Context, taskID, callID string, result []byte) error
	FailToolCall(ctx context.Context, taskID, callID, errText string) error
	DenyToolCall(ctx context.Context, taskID, callID, reason string) error
	MarkToolCallRunning(ctx context.Context, taskID, callID string) error
}

// ApprovalStore manages Approval records (spec.md §6 createApproval,
// getApproval).
type ApprovalStore interface {
	CreateApproval(ctx context.Context, a *Approval) error
	GetApproval(ctx context.Context, id string) (*Approval, error)
	ResolveApproval(ctx context.Context, id, status string) error
}

// CacheStore manages CacheEntry and OpenAPISpecCacheEntry rows.
type CacheStore interface {
	GetCacheEntry(ctx context.Context, workspaceID string) (*CacheEntry, error)
	PutCacheEntry(ctx context.Context, e *CacheEntry) error
	GetOpenAPISpecCache(ctx context.Context, specURL string) (*OpenAPISpecCacheEntry, error)
	PutOpenAPISpecCache(ctx context.Context, e *OpenAPISpecCacheEntry, ttl time.Duration) error
}

// EventStore persists lifecycle events (spec.md §6 "createTaskEvent").
type EventStore interface {
	CreateTaskEvent(ctx context.Context, e *TaskEvent) error
}

// SecretStore persists encrypted static credential material keyed by a
// ToolSource's sourceKey (spec.md §3 "Tool.credential", mode=static).
// It is deliberately not part of the Store composite interface: like
// the teacher's AuthScopeStore, it is a narrower collaborator only the
// secrets/credential-resolution path needs.
type SecretStore interface {
	GetSecret(ctx context.Context, sourceKey string) ([]byte, error)
	PutSecret(ctx context.Context, sourceKey string, encrypted []byte) error
	DeleteSecret(ctx context.Context, sourceKey string) error
}
