package control

import (
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/workflow"
)

// SignalHandler manages graceful cancellation for any workflow. A cancel
// signal flips state that the workflow observes at its next state
// transition; in-flight activities keep running until their own contexts
// are cancelled.
type SignalHandler struct {
	State      *WorkflowControlState
	WorkflowID string
	Logger     log.Logger
}

// Setup initializes the cancel signal channel and query handler
func (h *SignalHandler) Setup(ctx workflow.Context) {
	h.State = &WorkflowControlState{}

	_ = workflow.SetQueryHandler(ctx, QueryControlState, func() (WorkflowControlState, error) {
		return *h.State, nil
	})

	cancelCh := workflow.GetSignalChannel(ctx, SignalCancel)

	workflow.Go(ctx, func(gCtx workflow.Context) {
		for {
			var req CancelRequest
			cancelCh.Receive(gCtx, &req)
			if h.State.IsCancelled {
				h.Logger.Debug("Already cancelled, ignoring")
				continue
			}
			h.State.IsCancelled = true
			h.State.CancelReason = req.Reason
			h.State.CancelledBy = req.RequestedBy
			h.Logger.Info("Cancel signal received",
				"workflow_id", h.WorkflowID,
				"reason", req.Reason,
			)
		}
	})
}

// IsCancelled returns true if the workflow has been cancelled
func (h *SignalHandler) IsCancelled() bool {
	return h.State != nil && h.State.IsCancelled
}

// Reason returns the cancel reason, if any.
func (h *SignalHandler) Reason() string {
	if h.State == nil {
		return ""
	}
	return h.State.CancelReason
}
