package workflows

import (
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/deepscout-ai/deepscout/internal/activities"
	"github.com/deepscout-ai/deepscout/internal/constants"
	"github.com/deepscout-ai/deepscout/internal/streaming"
)

// ContextQAWorkflow answers a question from caller-supplied grounding text
// only. No retrieval runs and no research loop starts; a single model call
// produces the answer. Empty grounding fails before any model call.
func ContextQAWorkflow(ctx workflow.Context, input TaskInput) (TaskResult, error) {
	logger := workflow.GetLogger(ctx)
	wfID := workflow.GetInfo(ctx).WorkflowExecution.ID

	if strings.TrimSpace(input.GroundingContext) == "" {
		err := temporal.NewNonRetryableApplicationError(
			"context QA requires a non-empty grounding context", "MissingContext", nil)
		return TaskResult{Success: false, ErrorMessage: err.Error()}, err
	}

	emitTaskUpdate(ctx, streaming.EventWorkflowStarted, input.Query, map[string]interface{}{
		"task_type": TaskTypeContextQA,
	})

	actCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var qa activities.ContextQAResult
	err := workflow.ExecuteActivity(actCtx, constants.AnswerFromContextActivity,
		activities.ContextQAInput{
			Question:         input.Query,
			Context:          input.GroundingContext,
			ModelTier:        input.ModelTier,
			ParentWorkflowID: wfID,
		}).Get(ctx, &qa)
	if err != nil {
		logger.Error("Context QA failed", "error", err)
		emitDetached(ctx, streaming.EventErrorOccurred, err.Error(), map[string]interface{}{
			"task_type":        TaskTypeContextQA,
			"duration_seconds": elapsedSeconds(ctx),
		})
		return TaskResult{Success: false, ErrorMessage: err.Error()}, err
	}

	updateSession(ctx, input, qa.Answer, qa.TokensUsed, 0)

	emitTaskUpdate(ctx, streaming.EventWorkflowCompleted, "", map[string]interface{}{
		"task_type":        TaskTypeContextQA,
		"tokens_used":      qa.TokensUsed,
		"duration_seconds": elapsedSeconds(ctx),
	})
	return TaskResult{
		Answer:     qa.Answer,
		Success:    true,
		TokensUsed: qa.TokensUsed,
	}, nil
}

// URLSummaryWorkflow summarizes the content behind a single URL. An
// unreachable target is not an error: the failure notice becomes the
// visible answer so the caller always gets a displayable result.
func URLSummaryWorkflow(ctx workflow.Context, input TaskInput) (TaskResult, error) {
	logger := workflow.GetLogger(ctx)
	wfID := workflow.GetInfo(ctx).WorkflowExecution.ID

	if strings.TrimSpace(input.TargetURL) == "" {
		err := temporal.NewNonRetryableApplicationError(
			"url summary requires a target url", "MissingTarget", nil)
		return TaskResult{Success: false, ErrorMessage: err.Error()}, err
	}

	emitTaskUpdate(ctx, streaming.EventWorkflowStarted, input.TargetURL, map[string]interface{}{
		"task_type": TaskTypeURLSummary,
	})

	actCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 3 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 2,
		},
	})

	var sum activities.URLSummaryResult
	err := workflow.ExecuteActivity(actCtx, constants.SummarizeURLActivity,
		activities.URLSummaryInput{
			URL:              input.TargetURL,
			ModelTier:        input.ModelTier,
			ParentWorkflowID: wfID,
		}).Get(ctx, &sum)
	if err != nil {
		logger.Error("URL summary failed", "error", err)
		emitDetached(ctx, streaming.EventErrorOccurred, err.Error(), map[string]interface{}{
			"task_type":        TaskTypeURLSummary,
			"duration_seconds": elapsedSeconds(ctx),
		})
		return TaskResult{Success: false, ErrorMessage: err.Error()}, err
	}

	if sum.Unreachable {
		logger.Warn("Target URL unreachable", "url", input.TargetURL)
	}

	updateSession(ctx, input, sum.Answer, sum.TokensUsed, 0)

	emitTaskUpdate(ctx, streaming.EventWorkflowCompleted, "", map[string]interface{}{
		"task_type":        TaskTypeURLSummary,
		"tokens_used":      sum.TokensUsed,
		"unreachable":      sum.Unreachable,
		"duration_seconds": elapsedSeconds(ctx),
	})
	return TaskResult{
		Answer:     sum.Answer,
		Success:    true,
		TokensUsed: sum.TokensUsed,
	}, nil
}
