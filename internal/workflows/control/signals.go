package control

// Signal and query names for workflow control
const (
	SignalCancel      = "cancel_v1"
	QueryControlState = "control_state_v1"
)

// CancelRequest is sent when gracefully cancelling a workflow
type CancelRequest struct {
	Reason      string `json:"reason"`
	RequestedBy string `json:"requested_by"`
}

// WorkflowControlState tracks cancel state for query handlers
type WorkflowControlState struct {
	IsCancelled  bool   `json:"is_cancelled"`
	CancelReason string `json:"cancel_reason,omitempty"`
	CancelledBy  string `json:"cancelled_by,omitempty"`
}
