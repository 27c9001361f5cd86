package workflows

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/deepscout-ai/deepscout/internal/activities"
	"github.com/deepscout-ai/deepscout/internal/constants"
)

// emitTaskUpdate publishes one lifecycle event, best-effort. Event delivery
// never gates workflow progress.
func emitTaskUpdate(ctx workflow.Context, eventType, message string, payload map[string]interface{}) {
	emitCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Second,
	})
	_ = workflow.ExecuteActivity(emitCtx, constants.EmitTaskUpdateActivity,
		activities.EmitTaskUpdateInput{
			WorkflowID: workflow.GetInfo(ctx).WorkflowExecution.ID,
			EventType:  eventType,
			Message:    message,
			Payload:    payload,
			Timestamp:  workflow.Now(ctx),
		}).Get(ctx, nil)
}

// elapsedSeconds measures workflow wall time for terminal event payloads,
// using workflow time so the value is stable under replay.
func elapsedSeconds(ctx workflow.Context) float64 {
	return workflow.Now(ctx).Sub(workflow.GetInfo(ctx).WorkflowStartTime).Seconds()
}

// emitDetached publishes a terminal event on a disconnected context so it
// still goes out when the workflow context is already cancelled.
func emitDetached(ctx workflow.Context, eventType, message string, payload map[string]interface{}) {
	dCtx, _ := workflow.NewDisconnectedContext(ctx)
	emitTaskUpdate(dCtx, eventType, message, payload)
}

// updateSession persists the task outcome to the session store,
// fire-and-forget on a disconnected context.
func updateSession(ctx workflow.Context, input TaskInput, answer string, tokens, rounds int) {
	if input.SessionID == "" {
		return
	}
	dCtx, _ := workflow.NewDisconnectedContext(ctx)
	dCtx = workflow.WithActivityOptions(dCtx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
	})
	workflow.ExecuteActivity(dCtx, constants.UpdateSessionResultActivity,
		activities.SessionUpdateInput{
			SessionID:  input.SessionID,
			Query:      input.Query,
			Result:     answer,
			TokensUsed: tokens,
			RoundsUsed: rounds,
		})
}
