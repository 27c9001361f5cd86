package activities

import (
	"context"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/deepscout-ai/deepscout/internal/llm"
	"github.com/deepscout-ai/deepscout/internal/metrics"
)

type reflectionReply struct {
	IsSufficient bool   `json:"is_sufficient"`
	KnowledgeGap string `json:"knowledge_gap"`
	FollowUps    []struct {
		Type  string `json:"type"`
		Query string `json:"query"`
	} `json:"follow_up_queries"`
}

// ReflectOnEvidence judges whether the gathered summaries suffice to answer
// the question. A reply the model refuses to structure degrades to an
// insufficient verdict with no follow-ups; the loop budget then forces
// termination.
func (a *Activities) ReflectOnEvidence(ctx context.Context, input ReflectionInput) (*ReflectionVerdict, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("ReflectOnEvidence: starting",
		"query", truncate(input.Query, 100),
		"summaries", len(input.Summaries),
	)

	prompt := "Summaries:\n\n" + strings.Join(input.Summaries, "\n\n---\n\n")
	res, err := a.llm.Complete(ctx, llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: buildReflectionPrompt(input.Query),
		AgentID:      "reflector",
		ModelTier:    input.ModelTier,
		Temperature:  0.3,
		Context: map[string]interface{}{
			"parent_workflow_id": input.ParentWorkflowID,
		},
	})
	if err != nil {
		metrics.LLMCalls.WithLabelValues("reflection", "error").Inc()
		return nil, err
	}
	metrics.LLMCalls.WithLabelValues("reflection", "ok").Inc()

	var reply reflectionReply
	if err := llm.DecodeStructured(res.Text, &reply); err != nil {
		logger.Warn("ReflectOnEvidence: unparseable reply, degrading to insufficient",
			"reply", truncate(res.Text, 200),
		)
		return &ReflectionVerdict{
			IsSufficient: false,
			ParseFailed:  true,
			TokensUsed:   res.TokensUsed,
		}, nil
	}

	verdict := &ReflectionVerdict{
		IsSufficient: reply.IsSufficient,
		KnowledgeGap: reply.KnowledgeGap,
		TokensUsed:   res.TokensUsed,
	}
	for _, fu := range reply.FollowUps {
		q := strings.TrimSpace(fu.Query)
		if q == "" {
			continue
		}
		kind := normalizeFollowUpKind(fu.Type)
		verdict.FollowUps = append(verdict.FollowUps, FollowUp{Kind: kind, Query: q})
	}

	logger.Info("ReflectOnEvidence: done",
		"sufficient", verdict.IsSufficient,
		"follow_ups", len(verdict.FollowUps),
		"tokens", res.TokensUsed,
	)
	return verdict, nil
}

// normalizeFollowUpKind maps the model's free-form type strings onto the
// dispatcher's kinds. Unknown types default to web search.
func normalizeFollowUpKind(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case KindAcademic, "arxiv", "paper", "papers", "scholar":
		return KindAcademic
	case KindDocument:
		return KindDocument
	default:
		return KindWeb
	}
}
