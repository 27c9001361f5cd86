package activities

import "github.com/deepscout-ai/deepscout/internal/sources"

// Work item kinds understood by the dispatcher.
const (
	KindWeb      = "web"
	KindAcademic = "academic"
	KindDocument = "document"
)

// WorkItem is one typed unit of evidence gathering.
type WorkItem struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"` // web | academic | document
	Query    string `json:"query,omitempty"`
	Document string `json:"document,omitempty"` // docstore location for document items
}

// Evidence is the outcome of one work item. Failed items still produce a
// record so the loop can account for every dispatched item.
type Evidence struct {
	ItemID     string        `json:"item_id"`
	Kind       string        `json:"kind"`
	Text       string        `json:"text,omitempty"`
	Sources    []sources.Ref `json:"sources,omitempty"`
	Failed     bool          `json:"failed"`
	Error      string        `json:"error,omitempty"`
	TokensUsed int           `json:"tokens_used,omitempty"`
}

// FollowUp is one typed follow-up query from reflection.
type FollowUp struct {
	Kind  string `json:"type"`
	Query string `json:"query"`
}

// GenerateQueriesInput is the input for initial query generation
type GenerateQueriesInput struct {
	Query            string `json:"query"`
	NumQueries       int    `json:"num_queries"`
	History          string `json:"history,omitempty"`
	ModelTier        string `json:"model_tier,omitempty"`
	ParentWorkflowID string `json:"parent_workflow_id,omitempty"`
}

// GenerateQueriesResult is the result of initial query generation
type GenerateQueriesResult struct {
	Queries    []string `json:"queries"`
	Rationale  string   `json:"rationale,omitempty"`
	TokensUsed int      `json:"tokens_used"`
	ModelUsed  string   `json:"model_used,omitempty"`
}

// WorkItemInput carries one work item to a retrieval worker.
type WorkItemInput struct {
	Item      WorkItem `json:"item"`
	SessionID string   `json:"session_id"`
	ModelTier string   `json:"model_tier,omitempty"`
}

// ReflectionInput asks the reflection activity to judge gathered evidence.
type ReflectionInput struct {
	Query            string   `json:"query"`
	Summaries        []string `json:"summaries"`
	ModelTier        string   `json:"model_tier,omitempty"`
	ParentWorkflowID string   `json:"parent_workflow_id,omitempty"`
}

// ReflectionVerdict is the structured outcome of one reflection pass.
type ReflectionVerdict struct {
	IsSufficient bool       `json:"is_sufficient"`
	KnowledgeGap string     `json:"knowledge_gap,omitempty"`
	FollowUps    []FollowUp `json:"follow_up_queries,omitempty"`
	ParseFailed  bool       `json:"parse_failed,omitempty"`
	TokensUsed   int        `json:"tokens_used"`
}

// SynthesisInput is the input for final answer synthesis
type SynthesisInput struct {
	Query            string   `json:"query"`
	Summaries        []string `json:"summaries"`
	SessionID        string   `json:"session_id"`
	ModelTier        string   `json:"model_tier,omitempty"`
	ParentWorkflowID string   `json:"parent_workflow_id,omitempty"`
}

// SynthesisResult carries the resolved answer and exactly the sources its
// citations reference.
type SynthesisResult struct {
	Answer     string        `json:"answer"`
	Sources    []sources.Ref `json:"sources,omitempty"`
	TokensUsed int           `json:"tokens_used"`
	ModelUsed  string        `json:"model_used,omitempty"`
}

// ContextQAInput is the input for grounded question answering
type ContextQAInput struct {
	Question         string `json:"question"`
	Context          string `json:"context"`
	ModelTier        string `json:"model_tier,omitempty"`
	ParentWorkflowID string `json:"parent_workflow_id,omitempty"`
}

// ContextQAResult is the result of grounded question answering
type ContextQAResult struct {
	Answer     string `json:"answer"`
	TokensUsed int    `json:"tokens_used"`
	ModelUsed  string `json:"model_used,omitempty"`
}

// URLSummaryInput is the input for single-URL summarization
type URLSummaryInput struct {
	URL              string `json:"url"`
	ModelTier        string `json:"model_tier,omitempty"`
	ParentWorkflowID string `json:"parent_workflow_id,omitempty"`
}

// URLSummaryResult is the result of single-URL summarization. Unreachable
// targets produce a visible notice in Answer rather than an error.
type URLSummaryResult struct {
	Answer      string `json:"answer"`
	Unreachable bool   `json:"unreachable,omitempty"`
	TokensUsed  int    `json:"tokens_used"`
	ModelUsed   string `json:"model_used,omitempty"`
}

// SessionUpdateInput updates a session with the outcome of a workflow.
type SessionUpdateInput struct {
	SessionID  string `json:"session_id"`
	Query      string `json:"query,omitempty"`
	Result     string `json:"result"`
	TokensUsed int    `json:"tokens_used"`
	RoundsUsed int    `json:"rounds_used,omitempty"`
}

// SessionUpdateResult reports the session update outcome.
type SessionUpdateResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
