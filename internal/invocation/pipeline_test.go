package invocation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/revittco/toolrt/internal/approval"
	"github.com/revittco/toolrt/internal/discovery"
	"github.com/revittco/toolrt/internal/events"
	"github.com/revittco/toolrt/internal/policy"
	"github.com/revittco/toolrt/internal/runspec"
	"github.com/revittco/toolrt/internal/store"
)

// fakeCallStore is an in-memory store.ToolCallStore for tests.
type fakeCallStore struct {
	mu    sync.Mutex
	calls map[string]*store.ToolCallRecord
}

func newFakeCallStore() *fakeCallStore {
	return &fakeCallStore{calls: make(map[string]*store.ToolCallRecord)}
}

func key(taskID, callID string) string { return taskID + "/" + callID }

func (f *fakeCallStore) UpsertToolCallRequested(_ context.Context, c *store.ToolCallRecord) (*store.ToolCallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(c.TaskID, c.CallID)
	if existing, ok := f.calls[k]; ok {
		return existing, nil
	}
	c.Status = "requested"
	cp := *c
	f.calls[k] = &cp
	return &cp, nil
}

func (f *fakeCallStore) GetToolCall(_ context.Context, taskID, callID string) (*store.ToolCallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[key(taskID, callID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCallStore) SetToolCallPendingApproval(_ context.Context, taskID, callID, approvalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.calls[key(taskID, callID)]
	c.Status, c.ApprovalID = "pending_approval", approvalID
	return nil
}

func (f *fakeCallStore) CompleteToolCall(_ context.Context, taskID, callID string, result []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.calls[key(taskID, callID)]
	c.Status, c.Result = "completed", result
	return nil
}

func (f *fakeCallStore) FailToolCall(_ context.Context, taskID, callID, errText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.calls[key(taskID, callID)]
	c.Status, c.ErrorText = "failed", errText
	return nil
}

func (f *fakeCallStore) DenyToolCall(_ context.Context, taskID, callID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.calls[key(taskID, callID)]
	c.Status, c.ErrorText = "denied", reason
	return nil
}

func (f *fakeCallStore) MarkToolCallRunning(_ context.Context, taskID, callID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.calls[key(taskID, callID)]
	c.Status = "running"
	return nil
}

// fakeApprovalStore is an in-memory store.ApprovalStore for tests.
type fakeApprovalStore struct {
	mu        sync.Mutex
	approvals map[string]*store.Approval
}

func newFakeApprovalStore() *fakeApprovalStore {
	return &fakeApprovalStore{approvals: make(map[string]*store.Approval)}
}

func (f *fakeApprovalStore) CreateApproval(_ context.Context, a *store.Approval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.Status = "pending"
	cp := *a
	f.approvals[a.ID] = &cp
	return nil
}

func (f *fakeApprovalStore) GetApproval(_ context.Context, id string) (*store.Approval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.approvals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeApprovalStore) ResolveApproval(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.approvals[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Status = status
	return nil
}

// fakeEventStore is an in-memory store.EventStore for tests.
type fakeEventStore struct {
	mu     sync.Mutex
	events []*store.TaskEvent
}

func (f *fakeEventStore) CreateTaskEvent(_ context.Context, e *store.TaskEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

// fakePolicyStore is an in-memory store.PolicyStore for tests.
type fakePolicyStore struct{ records []store.PolicyRecord }

func (f *fakePolicyStore) ListAccessPolicies(_ context.Context, _ string) ([]store.PolicyRecord, error) {
	return f.records, nil
}

// echoRunner returns its input unchanged as the result.
type echoRunner struct{}

func (echoRunner) Run(_ context.Context, _ runspec.CallContext, input json.RawMessage) (json.RawMessage, error) {
	return input, nil
}

// failRunner always errors.
type failRunner struct{ err error }

func (r failRunner) Run(_ context.Context, _ runspec.CallContext, _ json.RawMessage) (json.RawMessage, error) {
	return nil, r.err
}

func newPipeline(policies []store.PolicyRecord, tools map[string]runspec.ToolDefinition) (*Pipeline, *fakeCallStore, *fakeApprovalStore) {
	calls := newFakeCallStore()
	approvals := newFakeApprovalStore()
	return &Pipeline{
		Calls:           calls,
		Policies:        policy.NewEngine(&fakePolicyStore{records: policies}),
		Approvals:       approval.NewManager(approvals, approval.NewBus()),
		Events:          events.NewEmitter(&fakeEventStore{}, nil),
		Tools:           tools,
		DefaultApproval: runspec.ApprovalAuto,
	}, calls, approvals
}

func TestInvokeTool_AllowedCallCompletes(t *testing.T) {
	tools := map[string]runspec.ToolDefinition{
		"widgets.get": {Path: "widgets.get", Approval: runspec.ApprovalAuto, Runner: echoRunner{}},
	}
	p, calls, _ := newPipeline(nil, tools)

	result, err := p.InvokeTool(context.Background(), Task{TaskID: "t1", WorkspaceID: "w1"}, CallRequest{
		CallID: "c1", ToolPath: "widgets.get", Input: json.RawMessage(`{"id":1}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != `{"id":1}` {
		t.Errorf("result = %s, want echoed input", result)
	}
	rec, _ := calls.GetToolCall(context.Background(), "t1", "c1")
	if rec.Status != "completed" {
		t.Errorf("status = %q, want completed", rec.Status)
	}
}

func TestInvokeTool_DeniedByPolicy(t *testing.T) {
	tools := map[string]runspec.ToolDefinition{
		"widgets.delete": {Path: "widgets.delete", Approval: runspec.ApprovalAuto, Runner: echoRunner{}},
	}
	policies := []store.PolicyRecord{{ID: "p1", Match: "widgets.delete", Decision: "deny", Context: "w1"}}
	p, calls, _ := newPipeline(policies, tools)

	_, err := p.InvokeTool(context.Background(), Task{TaskID: "t1", WorkspaceID: "w1"}, CallRequest{
		CallID: "c1", ToolPath: "widgets.delete",
	})
	if err == nil {
		t.Fatal("expected a denial error")
	}
	rec, _ := calls.GetToolCall(context.Background(), "t1", "c1")
	if rec.Status != "denied" {
		t.Errorf("status = %q, want denied", rec.Status)
	}
}

func TestInvokeTool_RequiresApprovalPausesThenResumes(t *testing.T) {
	tools := map[string]runspec.ToolDefinition{
		"admin.send_announcement": {Path: "admin.send_announcement", Approval: runspec.ApprovalRequired, Runner: echoRunner{}},
	}
	p, calls, approvals := newPipeline(nil, tools)
	task := Task{TaskID: "t1", WorkspaceID: "w1"}
	req := CallRequest{CallID: "c1", ToolPath: "admin.send_announcement", Input: json.RawMessage(`{}`)}

	_, err := p.InvokeTool(context.Background(), task, req)
	approvalID, pending := IsApprovalPending(err)
	if !pending {
		t.Fatalf("expected an approval-pending sentinel, got %v", err)
	}

	rec, _ := calls.GetToolCall(context.Background(), "t1", "c1")
	if rec.Status != "pending_approval" {
		t.Errorf("status = %q, want pending_approval", rec.Status)
	}

	// Re-invoking before resolution still pauses on the same approval.
	_, err = p.InvokeTool(context.Background(), task, req)
	secondID, pending := IsApprovalPending(err)
	if !pending || secondID != approvalID {
		t.Fatalf("expected the same pending approval, got %v", err)
	}

	if err := approvals.ResolveApproval(context.Background(), approvalID, "approved"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	result, err := p.InvokeTool(context.Background(), task, req)
	if err != nil {
		t.Fatalf("unexpected error after approval: %v", err)
	}
	if string(result) != `{}` {
		t.Errorf("result = %s, want echoed input", result)
	}
	rec, _ = calls.GetToolCall(context.Background(), "t1", "c1")
	if rec.Status != "completed" {
		t.Errorf("status = %q, want completed", rec.Status)
	}
}

func TestInvokeTool_UnknownToolReturnsUnknownToolError(t *testing.T) {
	tools := map[string]runspec.ToolDefinition{
		"widgets.get_widget": {Path: "widgets.get_widget", Runner: echoRunner{}},
	}
	idx := discovery.Build(tools)
	p, _, _ := newPipeline(nil, tools)
	p.Index = idx

	_, err := p.InvokeTool(context.Background(), Task{TaskID: "t1", WorkspaceID: "w1"}, CallRequest{
		CallID: "c1", ToolPath: "widgets.getwidget",
	})
	var unknown *UnknownToolError
	if err == nil {
		t.Fatal("expected an unknown tool error")
	}
	if uErr, ok := err.(*UnknownToolError); ok {
		unknown = uErr
	} else {
		t.Fatalf("expected *UnknownToolError, got %T: %v", err, err)
	}
	if unknown.Path != "widgets.getwidget" {
		t.Errorf("Path = %q, want widgets.getwidget", unknown.Path)
	}
}

func TestInvokeTool_RunnerFailureMarksFailed(t *testing.T) {
	boom := errFixture("boom")
	tools := map[string]runspec.ToolDefinition{
		"widgets.get": {Path: "widgets.get", Runner: failRunner{err: boom}},
	}
	p, calls, _ := newPipeline(nil, tools)

	_, err := p.InvokeTool(context.Background(), Task{TaskID: "t1", WorkspaceID: "w1"}, CallRequest{
		CallID: "c1", ToolPath: "widgets.get",
	})
	if err != boom {
		t.Fatalf("expected the runner's own error to propagate, got %v", err)
	}
	rec, _ := calls.GetToolCall(context.Background(), "t1", "c1")
	if rec.Status != "failed" {
		t.Errorf("status = %q, want failed", rec.Status)
	}
}

type errFixture string

func (e errFixture) Error() string { return string(e) }

func TestInvokeTool_AlreadyTerminalIsRejected(t *testing.T) {
	tools := map[string]runspec.ToolDefinition{
		"widgets.get": {Path: "widgets.get", Runner: echoRunner{}},
	}
	p, calls, _ := newPipeline(nil, tools)
	task := Task{TaskID: "t1", WorkspaceID: "w1"}
	req := CallRequest{CallID: "c1", ToolPath: "widgets.get", Input: json.RawMessage(`{}`)}

	if _, err := p.InvokeTool(context.Background(), task, req); err != nil {
		t.Fatalf("first call: %v", err)
	}
	rec, _ := calls.GetToolCall(context.Background(), "t1", "c1")
	if rec.Status != "completed" {
		t.Fatalf("setup: status = %q, want completed", rec.Status)
	}

	if _, err := p.InvokeTool(context.Background(), task, req); err == nil {
		t.Fatal("expected an error re-invoking a terminally resolved call")
	}
}
