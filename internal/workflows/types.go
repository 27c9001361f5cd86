package workflows

import (
	"github.com/deepscout-ai/deepscout/internal/activities"
	"github.com/deepscout-ai/deepscout/internal/sources"
)

// Task types routed by TaskWorkflow.
const (
	TaskTypeResearch   = "research"
	TaskTypeContextQA  = "context_qa"
	TaskTypeURLSummary = "url_summary"
)

// Message is one conversational turn carried with the task.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TaskInput is the request context passed to workflows. Effort knobs arrive
// already resolved (from the service's effort tiers) so workflow code stays
// deterministic and config-free.
type TaskInput struct {
	Query     string    `json:"query"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	History   []Message `json:"history,omitempty"`

	TaskType         string   `json:"task_type,omitempty"`
	GroundingContext string   `json:"grounding_context,omitempty"`
	TargetURL        string   `json:"target_url,omitempty"`
	DocumentRefs     []string `json:"document_refs,omitempty"`

	InitialQueries int    `json:"initial_queries,omitempty"`
	MaxLoops       int    `json:"max_loops,omitempty"`
	MaxConcurrency int    `json:"max_concurrency,omitempty"`
	ModelTier      string `json:"model_tier,omitempty"`
}

// TaskResult is the final outcome of a task workflow. A cancelled research
// task carries the evidence its completed rounds gathered, marked
// incomplete; a finished one carries the synthesized answer and sources.
type TaskResult struct {
	Answer       string                `json:"answer"`
	Sources      []sources.Ref         `json:"sources,omitempty"`
	Evidence     []activities.Evidence `json:"evidence,omitempty"`
	Success      bool                  `json:"success"`
	Incomplete   bool                  `json:"incomplete,omitempty"`
	RoundsUsed   int                   `json:"rounds_used"`
	TokensUsed   int                   `json:"tokens_used"`
	ErrorMessage string                `json:"error_message,omitempty"`
}

// historySummary flattens conversational turns for prompt context.
func historySummary(history []Message) string {
	if len(history) == 0 {
		return ""
	}
	out := ""
	for _, m := range history {
		out += m.Role + ": " + m.Content + "\n"
	}
	return out
}
