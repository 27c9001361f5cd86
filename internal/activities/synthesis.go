package activities

import (
	"context"
	"fmt"
	"strings"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/deepscout-ai/deepscout/internal/llm"
	"github.com/deepscout-ai/deepscout/internal/metrics"
)

// SynthesizeAnswer produces the final answer from the gathered summaries,
// then resolves every citation marker the model kept into a markdown link
// and prunes the source list to exactly the markers used. Markers the model
// invented are stripped rather than resolved.
func (a *Activities) SynthesizeAnswer(ctx context.Context, input SynthesisInput) (*SynthesisResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("SynthesizeAnswer: starting",
		"query", truncate(input.Query, 100),
		"summaries", len(input.Summaries),
	)

	res, err := a.llm.Complete(ctx, llm.CompletionRequest{
		Prompt:       input.Query,
		SystemPrompt: buildAnswerPrompt(input.Query, input.Summaries),
		AgentID:      "synthesizer",
		ModelTier:    input.ModelTier,
		Temperature:  0.5,
		Context: map[string]interface{}{
			"parent_workflow_id": input.ParentWorkflowID,
		},
	})
	if err != nil {
		metrics.LLMCalls.WithLabelValues("synthesis", "error").Inc()
		return nil, err
	}
	metrics.LLMCalls.WithLabelValues("synthesis", "ok").Inc()

	reg := a.sources.For(input.SessionID)
	answer, used := reg.ResolveText(res.Text)

	logger.Info("SynthesizeAnswer: done",
		"sources_cited", len(used),
		"tokens", res.TokensUsed,
	)
	return &SynthesisResult{
		Answer:     answer,
		Sources:    used,
		TokensUsed: res.TokensUsed,
		ModelUsed:  res.ModelUsed,
	}, nil
}

// AnswerFromContext answers strictly from caller-supplied grounding text.
// Empty grounding is a precondition failure; no model call is made.
func (a *Activities) AnswerFromContext(ctx context.Context, input ContextQAInput) (*ContextQAResult, error) {
	logger := activity.GetLogger(ctx)

	if strings.TrimSpace(input.Context) == "" {
		return nil, temporal.NewNonRetryableApplicationError(
			"grounding context is empty", "MissingContext", nil)
	}

	res, err := a.llm.Complete(ctx, llm.CompletionRequest{
		Prompt:       input.Question,
		SystemPrompt: buildContextQAPrompt(input.Question, input.Context),
		AgentID:      "context_qa",
		ModelTier:    input.ModelTier,
		Temperature:  0.2,
		Context: map[string]interface{}{
			"parent_workflow_id": input.ParentWorkflowID,
		},
	})
	if err != nil {
		metrics.LLMCalls.WithLabelValues("context_qa", "error").Inc()
		return nil, err
	}
	metrics.LLMCalls.WithLabelValues("context_qa", "ok").Inc()

	logger.Info("AnswerFromContext: done", "tokens", res.TokensUsed)
	return &ContextQAResult{
		Answer:     res.Text,
		TokensUsed: res.TokensUsed,
		ModelUsed:  res.ModelUsed,
	}, nil
}

// SummarizeURL fetches and summarizes exactly one URL with the model's
// browsing capability enabled. An unreachable target is reported as the
// visible answer, not an error.
func (a *Activities) SummarizeURL(ctx context.Context, input URLSummaryInput) (*URLSummaryResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("SummarizeURL: starting", "url", input.URL)

	res, err := a.llm.Complete(ctx, llm.CompletionRequest{
		Prompt:       buildURLSummaryPrompt(input.URL),
		AgentID:      "url_summarizer",
		ModelTier:    input.ModelTier,
		Temperature:  0.3,
		EnableSearch: true,
		Context: map[string]interface{}{
			"parent_workflow_id": input.ParentWorkflowID,
		},
	})
	if err != nil {
		metrics.LLMCalls.WithLabelValues("url_summary", "error").Inc()
		return nil, err
	}
	metrics.LLMCalls.WithLabelValues("url_summary", "ok").Inc()

	reply := strings.TrimSpace(res.Text)
	if reply == "" || strings.HasPrefix(reply, "UNREACHABLE") {
		logger.Warn("SummarizeURL: target unreachable", "url", input.URL)
		return &URLSummaryResult{
			Answer:      fmt.Sprintf("The target URL could not be reached: %s", input.URL),
			Unreachable: true,
			TokensUsed:  res.TokensUsed,
			ModelUsed:   res.ModelUsed,
		}, nil
	}

	logger.Info("SummarizeURL: done", "tokens", res.TokensUsed)
	return &URLSummaryResult{
		Answer:     reply,
		TokensUsed: res.TokensUsed,
		ModelUsed:  res.ModelUsed,
	}, nil
}
