package activities

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/deepscout-ai/deepscout/internal/metrics"
	"github.com/deepscout-ai/deepscout/internal/streaming"
)

// EmitTaskUpdateInput carries one lifecycle event from a workflow to the
// stream manager.
type EmitTaskUpdateInput struct {
	WorkflowID string                 `json:"workflow_id"`
	EventType  string                 `json:"event_type"`
	Message    string                 `json:"message,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// EmitTaskUpdate publishes a lifecycle event to the in-process stream
// manager. Best-effort: subscribers may not exist, and a full subscriber
// buffer drops rather than blocks. Terminal events also settle the
// per-workflow metrics here, since workflow code must stay side-effect free.
func (a *Activities) EmitTaskUpdate(ctx context.Context, in EmitTaskUpdateInput) error {
	logger := activity.GetLogger(ctx)
	logger.Info("task event",
		"workflow_id", in.WorkflowID,
		"type", in.EventType,
		"message", in.Message,
	)
	streaming.Get().Publish(in.WorkflowID, streaming.Event{
		Type:      in.EventType,
		Message:   in.Message,
		Payload:   in.Payload,
		Timestamp: in.Timestamp,
	})
	recordTerminalMetrics(in)
	return nil
}

// recordTerminalMetrics updates the workflow outcome collectors when a
// terminal event goes out. Non-terminal events record nothing.
func recordTerminalMetrics(in EmitTaskUpdateInput) {
	var status string
	switch in.EventType {
	case streaming.EventWorkflowCompleted:
		status = "completed"
	case streaming.EventWorkflowCancelled:
		status = "cancelled"
	case streaming.EventErrorOccurred:
		status = "error"
	default:
		return
	}

	taskType := "research"
	if v, ok := in.Payload["task_type"].(string); ok && v != "" {
		taskType = v
	}
	metrics.RecordWorkflowMetrics(taskType, status,
		payloadNumber(in.Payload, "duration_seconds"),
		int(payloadNumber(in.Payload, "tokens_used")))
	if rounds := payloadNumber(in.Payload, "rounds_used"); rounds > 0 {
		metrics.ResearchRounds.Observe(rounds)
	}
}

// payloadNumber reads a numeric payload value. Numbers arrive as float64
// after the Temporal JSON round trip, but workflow-local callers pass ints.
func payloadNumber(payload map[string]interface{}, key string) float64 {
	switch v := payload[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
