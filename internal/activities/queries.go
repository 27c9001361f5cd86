package activities

import (
	"context"
	"strings"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/deepscout-ai/deepscout/internal/llm"
	"github.com/deepscout-ai/deepscout/internal/metrics"
)

type queryWriterReply struct {
	Rationale string   `json:"rationale"`
	Query     []string `json:"query"`
}

// GenerateQueries expands the user's question into up to NumQueries search
// queries. Fewer usable queries than requested is fine; zero aborts the
// flow with a GenerationFailure.
func (a *Activities) GenerateQueries(ctx context.Context, input GenerateQueriesInput) (*GenerateQueriesResult, error) {
	logger := activity.GetLogger(ctx)

	numQueries := input.NumQueries
	if numQueries < 1 {
		numQueries = 1
	}
	logger.Info("GenerateQueries: starting",
		"query", truncate(input.Query, 100),
		"num_queries", numQueries,
	)

	prompt := input.Query
	if input.History != "" {
		prompt = "Conversation so far:\n" + input.History + "\n\nCurrent question: " + input.Query
	}

	res, err := a.llm.Complete(ctx, llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: buildQueryWriterPrompt(numQueries),
		AgentID:      "query_writer",
		ModelTier:    input.ModelTier,
		Temperature:  0.7,
		Context: map[string]interface{}{
			"parent_workflow_id": input.ParentWorkflowID,
		},
	})
	if err != nil {
		metrics.LLMCalls.WithLabelValues("query_generation", "error").Inc()
		return nil, err
	}
	metrics.LLMCalls.WithLabelValues("query_generation", "ok").Inc()

	var reply queryWriterReply
	queries := []string{}
	if err := llm.DecodeStructured(res.Text, &reply); err == nil {
		for _, q := range reply.Query {
			q = strings.TrimSpace(q)
			if q != "" {
				queries = append(queries, q)
			}
			if len(queries) == numQueries {
				break
			}
		}
	}

	if len(queries) == 0 {
		logger.Error("GenerateQueries: no usable queries", "reply", truncate(res.Text, 200))
		return nil, temporal.NewNonRetryableApplicationError(
			"model produced no usable search queries", "GenerationFailure", nil)
	}

	logger.Info("GenerateQueries: done",
		"generated", len(queries),
		"tokens", res.TokensUsed,
	)
	return &GenerateQueriesResult{
		Queries:    queries,
		Rationale:  reply.Rationale,
		TokensUsed: res.TokensUsed,
		ModelUsed:  res.ModelUsed,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
