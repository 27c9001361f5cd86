package workflows

import (
	"strings"

	"go.temporal.io/sdk/workflow"
)

// TaskWorkflow is the single entrypoint for all submitted tasks. It decides
// which leaf handles the request and delegates without adding state of its
// own, so history stays replay-safe across routing changes.
func TaskWorkflow(ctx workflow.Context, input TaskInput) (TaskResult, error) {
	logger := workflow.GetLogger(ctx)

	route := routeTask(input)
	logger.Info("TaskWorkflow routing",
		"requested_type", input.TaskType,
		"route", route,
	)

	switch route {
	case TaskTypeContextQA:
		return ContextQAWorkflow(ctx, input)
	case TaskTypeURLSummary:
		return URLSummaryWorkflow(ctx, input)
	default:
		return ResearchWorkflow(ctx, input)
	}
}

// routeTask picks the leaf for a task. Routing is permissive: a requested
// leaf missing its required payload falls back to full research rather
// than failing, and unknown task types research as well.
func routeTask(input TaskInput) string {
	switch strings.ToLower(strings.TrimSpace(input.TaskType)) {
	case TaskTypeContextQA:
		if strings.TrimSpace(input.GroundingContext) != "" {
			return TaskTypeContextQA
		}
	case TaskTypeURLSummary:
		if strings.TrimSpace(input.TargetURL) != "" {
			return TaskTypeURLSummary
		}
	}
	return TaskTypeResearch
}
