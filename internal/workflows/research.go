package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/deepscout-ai/deepscout/internal/activities"
	"github.com/deepscout-ai/deepscout/internal/constants"
	"github.com/deepscout-ai/deepscout/internal/streaming"
	"github.com/deepscout-ai/deepscout/internal/workflows/control"
	"github.com/deepscout-ai/deepscout/internal/workflows/execution"
)

// ResearchWorkflow runs the iterative evidence-gathering loop: generate
// initial queries, fan out typed work items, reflect on the accumulated
// evidence, and either loop with follow-up queries or finalize an answer
// with resolved citations. Cancellation at any state transition returns a
// partial result marked incomplete, skipping synthesis.
func ResearchWorkflow(ctx workflow.Context, input TaskInput) (TaskResult, error) {
	logger := workflow.GetLogger(ctx)
	wfID := workflow.GetInfo(ctx).WorkflowExecution.ID

	if input.InitialQueries <= 0 {
		input.InitialQueries = 3
	}
	if input.MaxLoops <= 0 {
		input.MaxLoops = 3
	}
	if input.MaxConcurrency <= 0 {
		input.MaxConcurrency = 5
	}
	// The source registry is scoped by session; an anonymous task gets a
	// registry keyed by its own execution so concurrent tasks never share
	// citation numbering.
	registryKey := input.SessionID
	if registryKey == "" {
		registryKey = wfID
	}

	logger.Info("ResearchWorkflow started",
		"query", input.Query,
		"initial_queries", input.InitialQueries,
		"max_loops", input.MaxLoops,
	)

	handler := &control.SignalHandler{
		WorkflowID: wfID,
		Logger:     logger,
	}
	handler.Setup(ctx)

	emitTaskUpdate(ctx, streaming.EventWorkflowStarted, input.Query, nil)

	llmCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 3 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	totalTokens := 0

	// GENERATING
	var gen activities.GenerateQueriesResult
	err := workflow.ExecuteActivity(llmCtx, constants.GenerateQueriesActivity,
		activities.GenerateQueriesInput{
			Query:            input.Query,
			NumQueries:       input.InitialQueries,
			History:          historySummary(input.History),
			ModelTier:        input.ModelTier,
			ParentWorkflowID: wfID,
		}).Get(ctx, &gen)
	if err != nil {
		logger.Error("Query generation failed", "error", err)
		emitDetached(ctx, streaming.EventErrorOccurred, err.Error(), map[string]interface{}{
			"task_type":        TaskTypeResearch,
			"duration_seconds": elapsedSeconds(ctx),
		})
		return TaskResult{Success: false, ErrorMessage: err.Error()}, err
	}
	totalTokens += gen.TokensUsed

	emitTaskUpdate(ctx, streaming.EventQueryGenerated,
		fmt.Sprintf("generated %d search queries", len(gen.Queries)),
		map[string]interface{}{"queries": gen.Queries})

	// First round: one web item per generated query plus one document item
	// per uploaded ref.
	round := 1
	items := make([]activities.WorkItem, 0, len(gen.Queries)+len(input.DocumentRefs))
	for i, q := range gen.Queries {
		items = append(items, activities.WorkItem{
			ID:    fmt.Sprintf("%s-r%d-i%d", wfID, round, i),
			Kind:  activities.KindWeb,
			Query: q,
		})
	}
	for i, ref := range input.DocumentRefs {
		items = append(items, activities.WorkItem{
			ID:       fmt.Sprintf("%s-r%d-d%d", wfID, round, i),
			Kind:     activities.KindDocument,
			Document: ref,
		})
	}

	var evidence []activities.Evidence
	loopCounter := 0

	for {
		if cancelled(ctx, handler) {
			return cancelResult(ctx, input, handler, totalTokens, round-1, evidence)
		}

		// DISPATCHING
		batch, err := execution.ExecuteBatch(ctx, items, registryKey, execution.BatchConfig{
			MaxConcurrency: input.MaxConcurrency,
			ModelTier:      input.ModelTier,
		})
		if err != nil {
			// The batch only errors when the workflow context was cancelled
			// mid-round; the aborted round's records are discarded.
			return cancelResult(ctx, input, handler, totalTokens, round-1, evidence)
		}
		evidence = append(evidence, batch...)
		for _, ev := range batch {
			totalTokens += ev.TokensUsed
		}

		emitTaskUpdate(ctx, streaming.EventEvidenceGathered,
			fmt.Sprintf("round %d gathered %d evidence records", round, len(batch)),
			map[string]interface{}{
				"round":  round,
				"count":  len(batch),
				"failed": countFailed(batch),
			})

		if cancelled(ctx, handler) {
			return cancelResult(ctx, input, handler, totalTokens, round, evidence)
		}

		// REFLECTING
		var verdict activities.ReflectionVerdict
		err = workflow.ExecuteActivity(llmCtx, constants.ReflectOnEvidenceActivity,
			activities.ReflectionInput{
				Query:            input.Query,
				Summaries:        evidenceSummaries(evidence),
				ModelTier:        input.ModelTier,
				ParentWorkflowID: wfID,
			}).Get(ctx, &verdict)
		if err != nil {
			// Reflection failure degrades to an insufficient verdict with
			// no follow-ups so the loop terminates and synthesis still
			// runs on whatever evidence exists.
			logger.Warn("Reflection failed, degrading", "error", err)
			verdict = activities.ReflectionVerdict{IsSufficient: false, ParseFailed: true}
		}
		totalTokens += verdict.TokensUsed

		emitTaskUpdate(ctx, streaming.EventReflectionCompleted,
			verdict.KnowledgeGap,
			map[string]interface{}{
				"is_sufficient": verdict.IsSufficient,
				"follow_ups":    len(verdict.FollowUps),
				"loop_counter":  loopCounter,
			})

		if cancelled(ctx, handler) {
			return cancelResult(ctx, input, handler, totalTokens, round, evidence)
		}

		finalize, next := nextLoopState(verdict, loopCounter, input.MaxLoops)
		loopCounter = next
		if finalize {
			break
		}

		round++
		items = followUpItems(wfID, round, verdict.FollowUps)
	}

	// FINALIZING
	var synth activities.SynthesisResult
	err = workflow.ExecuteActivity(llmCtx, constants.SynthesizeAnswerActivity,
		activities.SynthesisInput{
			Query:            input.Query,
			Summaries:        evidenceSummaries(evidence),
			SessionID:        registryKey,
			ModelTier:        input.ModelTier,
			ParentWorkflowID: wfID,
		}).Get(ctx, &synth)
	if err != nil {
		logger.Error("Synthesis failed", "error", err)
		emitDetached(ctx, streaming.EventErrorOccurred, err.Error(), map[string]interface{}{
			"task_type":        TaskTypeResearch,
			"duration_seconds": elapsedSeconds(ctx),
		})
		return TaskResult{
			Success:      false,
			RoundsUsed:   round,
			TokensUsed:   totalTokens,
			ErrorMessage: err.Error(),
		}, err
	}
	totalTokens += synth.TokensUsed

	emitTaskUpdate(ctx, streaming.EventAnswerFinalized,
		fmt.Sprintf("answer cites %d sources", len(synth.Sources)),
		map[string]interface{}{"sources": len(synth.Sources)})

	updateSession(ctx, input, synth.Answer, totalTokens, round)

	emitTaskUpdate(ctx, streaming.EventWorkflowCompleted, "", map[string]interface{}{
		"task_type":        TaskTypeResearch,
		"rounds_used":      round,
		"tokens_used":      totalTokens,
		"duration_seconds": elapsedSeconds(ctx),
	})

	logger.Info("ResearchWorkflow completed",
		"rounds", round,
		"tokens", totalTokens,
		"sources", len(synth.Sources),
	)
	return TaskResult{
		Answer:     synth.Answer,
		Sources:    synth.Sources,
		Success:    true,
		RoundsUsed: round,
		TokensUsed: totalTokens,
	}, nil
}

// nextLoopState applies the loop-termination rule: sufficiency finalizes
// immediately without consuming budget; otherwise the counter advances once
// per completed reflection and finalization is forced at budget exhaustion
// or when reflection offers nothing further to dispatch.
func nextLoopState(verdict activities.ReflectionVerdict, counter, maxLoops int) (finalize bool, next int) {
	if verdict.IsSufficient {
		return true, counter
	}
	counter++
	if counter >= maxLoops {
		return true, counter
	}
	if len(verdict.FollowUps) == 0 {
		return true, counter
	}
	return false, counter
}

func followUpItems(wfID string, round int, followUps []activities.FollowUp) []activities.WorkItem {
	items := make([]activities.WorkItem, 0, len(followUps))
	for i, fu := range followUps {
		items = append(items, activities.WorkItem{
			ID:    fmt.Sprintf("%s-r%d-i%d", wfID, round, i),
			Kind:  fu.Kind,
			Query: fu.Query,
		})
	}
	return items
}

// evidenceSummaries renders successful evidence as kind-tagged text blocks.
// Failed records are excluded; they carry no text.
func evidenceSummaries(evidence []activities.Evidence) []string {
	out := make([]string, 0, len(evidence))
	for _, ev := range evidence {
		if ev.Failed || ev.Text == "" {
			continue
		}
		out = append(out, fmt.Sprintf("Source kind: %s\n%s", ev.Kind, ev.Text))
	}
	return out
}

func countFailed(evidence []activities.Evidence) int {
	n := 0
	for _, ev := range evidence {
		if ev.Failed {
			n++
		}
	}
	return n
}

func cancelled(ctx workflow.Context, handler *control.SignalHandler) bool {
	return handler.IsCancelled() || ctx.Err() != nil
}

// cancelResult builds the partial outcome of a cancelled task: whatever
// evidence the completed rounds accumulated rides along, marked incomplete,
// so the caller still sees what was gathered before the stop.
func cancelResult(ctx workflow.Context, input TaskInput, handler *control.SignalHandler, tokens, rounds int, evidence []activities.Evidence) (TaskResult, error) {
	reason := handler.Reason()
	if reason == "" {
		reason = "cancelled by caller"
	}
	emitDetached(ctx, streaming.EventWorkflowCancelled, reason, map[string]interface{}{
		"task_type":        TaskTypeResearch,
		"rounds_completed": rounds,
		"tokens_used":      tokens,
		"duration_seconds": elapsedSeconds(ctx),
	})
	return TaskResult{
		Success:      false,
		Incomplete:   true,
		Evidence:     evidence,
		RoundsUsed:   rounds,
		TokensUsed:   tokens,
		ErrorMessage: fmt.Sprintf("cancelled: %s", reason),
	}, nil
}
