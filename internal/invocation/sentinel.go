package invocation

import "strings"

// ApprovalPendingPrefix is the well-known sentinel prefix spec.md §5/§6
// names "APPROVAL_PENDING_PREFIX": any error whose message starts with
// it means the call is legitimately paused on the named approval id,
// not failed.
const ApprovalPendingPrefix = "approval_pending:"

// ApprovalPendingError is the sentinel invokeTool throws when a call is
// waiting on a human decision (spec.md §4.7 step 8). The host runtime
// is expected to recognize it by prefix (Error()) and pause the task
// rather than mark it failed.
type ApprovalPendingError struct {
	ApprovalID string
}

func (e *ApprovalPendingError) Error() string {
	return ApprovalPendingPrefix + e.ApprovalID
}

// IsApprovalPending reports whether err (or its message) is an
// approval-pending sentinel, and returns the approval id if so.
func IsApprovalPending(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if ap, ok := err.(*ApprovalPendingError); ok {
		return ap.ApprovalID, true
	}
	if msg := err.Error(); strings.HasPrefix(msg, ApprovalPendingPrefix) {
		return strings.TrimPrefix(msg, ApprovalPendingPrefix), true
	}
	return "", false
}
