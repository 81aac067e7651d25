// Package store defines the persisted data model this core relies on
// (spec.md §3, §6 "Persisted state layout") and a SQLite-backed
// implementation of it (internal/store/sqlite). The core itself treats
// these as typed host collaborators — spec.md §1 places the actual
// database ownership out of scope — but a concrete implementation is
// kept here the way the teacher keeps one, for local running and tests.
package store

import (
	"encoding/json"
	"time"
)

// ToolSource is a workspace-scoped configured upstream that contributes
// tools (spec.md §3 "ToolSource"). Only enabled sources are considered
// by the inventory assembler.
type ToolSource struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"` // "mcp" | "openapi" | "graphql" | "postman"
	Name      string          `json:"name"`
	Enabled   bool            `json:"enabled"`
	Config    json.RawMessage `json:"config"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PolicyRecord is a workspace- or actor-scoped access control rule
// (spec.md §3 "PolicyRecord").
type PolicyRecord struct {
	ID       string `json:"id"`
	Match    string `json:"match"`   // path pattern or "source:<sourceKey>"
	Context  string `json:"context"` // workspaceId | actorId | clientId
	Decision string `json:"decision"`
	Priority int    `json:"priority"`
}

// ToolCallRecord is the persisted lifecycle state of a single invocation
// (spec.md §3 "ToolCallRecord").
type ToolCallRecord struct {
	TaskID     string          `json:"task_id"`
	CallID     string          `json:"call_id"`
	Status     string          `json:"status"` // requested|running|pending_approval|completed|failed|denied
	ToolPath   string          `json:"tool_path"`
	Input      json.RawMessage `json:"input"`
	ApprovalID string          `json:"approval_id,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	ErrorText  string          `json:"error_text,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Approval is a persisted human-in-the-loop decision gating a specific
// (task, call) pair (spec.md §3 "Approval").
type Approval struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"task_id"`
	CallID    string          `json:"call_id"`
	ToolPath  string          `json:"tool_path"`
	Input     json.RawMessage `json:"input"`
	Status    string          `json:"status"` // pending|approved|denied
	CreatedAt time.Time       `json:"created_at"`
	Resolved  *time.Time      `json:"resolved_at,omitempty"`
}

// CacheEntry is the signature-keyed workspace tool inventory cache row
// (spec.md §3 "CacheEntry", §6 "workspaceToolCache row"). IsFresh is not
// itself stored — it's computed by comparing Signature against the
// signature derived from the workspace's current enabled sources.
type CacheEntry struct {
	WorkspaceID    string    `json:"workspace_id"`
	Signature      string    `json:"signature"`
	StorageID      string    `json:"storage_id"`
	TypesStorageID string    `json:"types_storage_id,omitempty"`
	ToolCount      int       `json:"tool_count"`
	SizeBytes      int       `json:"size_bytes"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OpenAPISpecCacheEntry is the TTL'd cache row for fetched+bundled
// OpenAPI documents (spec.md §6 "openApiSpecCache row").
type OpenAPISpecCacheEntry struct {
	SpecURL   string    `json:"spec_url"`
	Version   string    `json:"version"`
	StorageID string    `json:"storage_id"`
	SizeBytes int       `json:"size_bytes"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CredentialBinding is the declarative credential a tool carries
// (spec.md §3 "Tool.credential"). Mode=static blobs are resolved by the
// secrets package; workspace/actor/account modes are resolved by the
// host's resolveCredential collaborator (spec.md §6).
type CredentialBinding struct {
	SourceKey  string `json:"sourceKey"`
	Mode       string `json:"mode"` // static|workspace|actor|account
	AuthType   string `json:"authType"`
	HeaderName string `json:"headerName,omitempty"`
}

// ResolvedCredential is what a CredentialBinding resolves to at call
// time: concrete header(s) to inject into the executor's request.
type ResolvedCredential struct {
	HeaderName  string
	HeaderValue string
}

// TaskEvent is a persisted lifecycle event for a (task, call) pair
// (spec.md §6 "createTaskEvent", §6 "Event schema"). Type is one of
// tool.call.started, approval.requested, tool.call.completed,
// tool.call.failed, tool.call.denied; Payload carries the event-specific
// fields spec.md §6 names for each type.
type TaskEvent struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"task_id"`
	CallID    string          `json:"call_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
