// Package invocation implements invokeTool (spec.md §4.7): the single
// call-shaped entry point that persists a requested call, resolves it
// to a live tool, computes and enforces an allow/deny/require_approval
// decision, resolves its credential, dispatches through the tool's run
// closure, and records the terminal outcome. Grounded on the teacher's
// internal/gateway/handler.go handleToolsCall/handleApprovalGate
// orchestration, stripped of the JSON-RPC/session framing spec.md §1
// places out of scope and rebuilt around this data model's
// ToolCallRecord/Approval/TaskEvent rows instead of AuditRecord.
package invocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/revittco/toolrt/internal/approval"
	"github.com/revittco/toolrt/internal/discovery"
	"github.com/revittco/toolrt/internal/events"
	"github.com/revittco/toolrt/internal/policy"
	"github.com/revittco/toolrt/internal/runspec"
	"github.com/revittco/toolrt/internal/store"
)

// Task carries per-call identity (spec.md §4.7 step 9 "{taskId,
// workspaceId, actorId, clientId}").
type Task struct {
	TaskID      string
	WorkspaceID string
	ActorID     string
	ClientID    string
}

// CallRequest is invokeTool's argument (spec.md §4.7
// "invokeTool(task, {callId, toolPath, input})").
type CallRequest struct {
	CallID   string
	ToolPath string
	Input    json.RawMessage
}

// CredentialResolver resolves a non-static CredentialBinding (spec.md
// §6 "resolveCredential" host collaborator, out of scope for this core
// to implement itself; mode=workspace/actor/account need a concrete
// identity-and-secret store the host owns).
type CredentialResolver interface {
	ResolveCredential(ctx context.Context, task Task, binding store.CredentialBinding) (*store.ResolvedCredential, error)
}

// StaticCredentialResolver resolves mode=static bindings (the one
// credential mode this core fully owns, via internal/secrets).
type StaticCredentialResolver interface {
	Resolve(ctx context.Context, binding store.CredentialBinding) (*store.ResolvedCredential, error)
}

// Pipeline implements invokeTool end to end.
type Pipeline struct {
	Calls     store.ToolCallStore
	Policies  *policy.Engine
	Approvals *approval.Manager
	Events    *events.Emitter
	Static    StaticCredentialResolver
	Dynamic   CredentialResolver

	// Tools is the live, rehydrated inventory for the registry's
	// current build (spec.md §4.7 step 2 "requires a registry build and
	// matching signature"); Index backs suggestion search on a total
	// resolution miss.
	Tools map[string]runspec.ToolDefinition
	Index *discovery.Index

	DefaultApproval string
}

// InvokeTool implements spec.md §4.7 steps 1-10.
func (p *Pipeline) InvokeTool(ctx context.Context, task Task, req CallRequest) (json.RawMessage, error) {
	call, err := p.persistRequested(ctx, task, req)
	if err != nil {
		return nil, fmt.Errorf("persist call: %w", err)
	}

	if isSystemTool(req.ToolPath) {
		return p.runSystemTool(ctx, task, req)
	}

	if p.Tools == nil {
		return nil, discovery.ErrRegistryNotReady
	}
	def, err := resolveTool(p.Tools, p.Index, req.ToolPath)
	if err != nil {
		return nil, err
	}

	decision, displayPath, err := p.decide(ctx, task, def, req.Input)
	if err != nil {
		return nil, fmt.Errorf("compute decision: %w", err)
	}

	if decision == policy.Deny {
		reason := fmt.Sprintf("%s (policy denied)", displayPath)
		if err := p.Calls.DenyToolCall(ctx, task.TaskID, req.CallID, reason); err != nil {
			return nil, fmt.Errorf("deny call: %w", err)
		}
		return nil, errors.New(reason)
	}

	var credential *runspec.ResolvedCredential
	if def.Credential != nil {
		resolved, err := p.resolveCredential(ctx, task, toCredentialBinding(*def.Credential))
		if err != nil {
			return nil, fmt.Errorf("resolve credential: %w", err)
		}
		credential = &runspec.ResolvedCredential{HeaderName: resolved.HeaderName, HeaderValue: resolved.HeaderValue}
	}

	if call.Status == "requested" {
		if err := p.Events.Emit(ctx, task.TaskID, req.CallID, events.TypeToolCallStarted, events.ToolCallStartedPayload{
			TaskID: task.TaskID, CallID: req.CallID, ToolPath: displayPath, Approval: string(decision),
		}); err != nil {
			slog.Warn("emit tool.call.started", "error", err)
		}
	}

	if err := p.gateApproval(ctx, task, req, call, decision, displayPath); err != nil {
		return nil, err
	}

	if err := p.Calls.MarkToolCallRunning(ctx, task.TaskID, req.CallID); err != nil {
		return nil, fmt.Errorf("mark running: %w", err)
	}

	callCtx := runspec.CallContext{
		TaskID: task.TaskID, WorkspaceID: task.WorkspaceID, ActorID: task.ActorID,
		ClientID: task.ClientID, Credential: credential, IsToolAllowed: true,
	}
	result, runErr := def.Runner.Run(ctx, callCtx, req.Input)
	return p.terminate(ctx, task, req, displayPath, result, runErr)
}

func (p *Pipeline) persistRequested(ctx context.Context, task Task, req CallRequest) (*store.ToolCallRecord, error) {
	rec := &store.ToolCallRecord{
		TaskID: task.TaskID, CallID: req.CallID, ToolPath: req.ToolPath, Input: req.Input,
	}
	persisted, err := p.Calls.UpsertToolCallRequested(ctx, rec)
	if err != nil {
		return nil, err
	}
	if persisted.Status == "completed" || persisted.Status == "failed" || persisted.Status == "denied" {
		return nil, fmt.Errorf("call %s/%s is already terminally resolved (%s)", task.TaskID, req.CallID, persisted.Status)
	}
	return persisted, nil
}

// toCredentialBinding converts a tool's declarative runspec.CredentialSpec
// into the store package's CredentialBinding, the shape the secrets and
// host-credential collaborators accept. The two types carry the same
// fields; they are declared separately because runspec must stay free of
// a store import (spec.md §9 layering) while store must stay free of a
// runspec import.
func toCredentialBinding(spec runspec.CredentialSpec) store.CredentialBinding {
	return store.CredentialBinding{
		SourceKey:  spec.SourceKey,
		Mode:       spec.Mode,
		AuthType:   spec.AuthType,
		HeaderName: spec.HeaderName,
	}
}

func (p *Pipeline) resolveCredential(ctx context.Context, task Task, binding store.CredentialBinding) (*store.ResolvedCredential, error) {
	if binding.Mode == "static" {
		if p.Static == nil {
			return nil, fmt.Errorf("no static credential resolver configured for source %q", binding.SourceKey)
		}
		return p.Static.Resolve(ctx, binding)
	}
	if p.Dynamic == nil {
		return nil, fmt.Errorf("no credential resolver configured for mode %q", binding.Mode)
	}
	return p.Dynamic.ResolveCredential(ctx, task, binding)
}

// gateApproval implements spec.md §4.7 step 8's state machine.
func (p *Pipeline) gateApproval(ctx context.Context, task Task, req CallRequest, call *store.ToolCallRecord, decision policy.Decision, displayPath string) error {
	if call.ApprovalID != "" {
		a, err := p.Approvals.Store.GetApproval(ctx, call.ApprovalID)
		if err != nil {
			return fmt.Errorf("get approval %s: %w", call.ApprovalID, err)
		}
		switch a.Status {
		case "pending":
			return &ApprovalPendingError{ApprovalID: a.ID}
		case "denied":
			reason := fmt.Sprintf("%s (denied by approval %s)", displayPath, a.ID)
			if err := p.Calls.DenyToolCall(ctx, task.TaskID, req.CallID, reason); err != nil {
				return fmt.Errorf("deny call: %w", err)
			}
			return errors.New(reason)
		case "approved":
			return nil
		}
		return fmt.Errorf("approval %s has unrecognized status %q", a.ID, a.Status)
	}

	if decision != policy.RequireApproval {
		return nil
	}

	a, err := p.Approvals.EnsureApproval(ctx, "", task.TaskID, req.CallID, displayPath, req.Input)
	if err != nil {
		return fmt.Errorf("ensure approval: %w", err)
	}
	if err := p.Calls.SetToolCallPendingApproval(ctx, task.TaskID, req.CallID, a.ID); err != nil {
		return fmt.Errorf("set pending approval: %w", err)
	}
	if err := p.Events.Emit(ctx, task.TaskID, req.CallID, events.TypeApprovalRequested, events.ApprovalRequestedPayload{
		ApprovalID: a.ID, TaskID: task.TaskID, CallID: req.CallID, ToolPath: displayPath,
		Input: req.Input, CreatedAt: a.CreatedAt.Format(rfc3339),
	}); err != nil {
		slog.Warn("emit approval.requested", "error", err)
	}
	return &ApprovalPendingError{ApprovalID: a.ID}
}

const rfc3339 = "2006-01-02T15:04:05Z07:00"

// terminate implements spec.md §4.7 step 10.
func (p *Pipeline) terminate(ctx context.Context, task Task, req CallRequest, displayPath string, result json.RawMessage, runErr error) (json.RawMessage, error) {
	if runErr != nil {
		msg := runErr.Error()
		if err := p.Calls.FailToolCall(ctx, task.TaskID, req.CallID, msg); err != nil {
			slog.Warn("fail call", "error", err)
		}
		if err := p.Events.Emit(ctx, task.TaskID, req.CallID, events.TypeToolCallFailed, events.ToolCallTerminalPayload{
			TaskID: task.TaskID, CallID: req.CallID, ToolPath: displayPath, Message: msg,
		}); err != nil {
			slog.Warn("emit tool.call.failed", "error", err)
		}
		return nil, runErr
	}

	if err := p.Calls.CompleteToolCall(ctx, task.TaskID, req.CallID, result); err != nil {
		return nil, fmt.Errorf("complete call: %w", err)
	}
	if err := p.Events.Emit(ctx, task.TaskID, req.CallID, events.TypeToolCallCompleted, events.ToolCallTerminalPayload{
		TaskID: task.TaskID, CallID: req.CallID, ToolPath: displayPath,
	}); err != nil {
		slog.Warn("emit tool.call.completed", "error", err)
	}
	return result, nil
}

func isSystemTool(path string) bool {
	switch path {
	case "discover", "catalog.namespaces", "catalog.tools":
		return true
	default:
		return false
	}
}

func (p *Pipeline) runSystemTool(ctx context.Context, task Task, req CallRequest) (json.RawMessage, error) {
	def, ok := p.Tools[req.ToolPath]
	if !ok || def.Runner == nil {
		return nil, discovery.ErrRegistryNotReady
	}
	callCtx := runspec.CallContext{
		TaskID: task.TaskID, WorkspaceID: task.WorkspaceID, ActorID: task.ActorID,
		ClientID: task.ClientID, IsToolAllowed: true,
	}
	result, err := def.Runner.Run(ctx, callCtx, req.Input)
	return p.terminate(ctx, task, req, req.ToolPath, result, err)
}

// graphqlInput is the decoded shape of a graphql_raw tool's input
// (spec.md §4.8 "GraphQL executor. POST {query, variables}").
type graphqlInput struct {
	Query string `json:"query"`
}

// decide implements spec.md §4.7 step 4: GraphQL sources get field-level
// aggregated decisions with the effective paths joined into the
// displayed call path; everything else goes through the policy engine
// on the resolved tool's own path.
func (p *Pipeline) decide(ctx context.Context, task Task, def *runspec.ToolDefinition, input json.RawMessage) (policy.Decision, string, error) {
	if def.RunSpec.Kind == runspec.KindGraphQLRaw {
		var in graphqlInput
		if len(input) > 0 {
			if err := json.Unmarshal(input, &in); err != nil {
				return "", "", fmt.Errorf("invalid graphql input: %w", err)
			}
		}
		sourceKey := def.Path
		if def.Credential != nil && def.Credential.SourceKey != "" {
			sourceKey = def.Credential.SourceKey
		}
		decision, paths, err := p.Policies.DecideGraphQL(ctx, task.WorkspaceID, sourceKey, in.Query, p.fallbackApproval(def))
		if err != nil {
			return "", "", err
		}
		return decision, joinPaths(def.Path, paths), nil
	}

	decision, _, err := p.Policies.Decide(ctx, task.WorkspaceID, def.Path, p.fallbackApproval(def))
	if err != nil {
		return "", "", err
	}
	return decision, def.Path, nil
}

func (p *Pipeline) fallbackApproval(def *runspec.ToolDefinition) string {
	if def.Approval != "" {
		return def.Approval
	}
	return p.DefaultApproval
}

func joinPaths(path string, fields []string) string {
	if len(fields) == 0 {
		return path
	}
	out := path
	for _, f := range fields {
		out += " " + f
	}
	return out
}
