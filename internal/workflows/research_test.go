package workflows

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"github.com/deepscout-ai/deepscout/internal/activities"
	"github.com/deepscout-ai/deepscout/internal/constants"
	"github.com/deepscout-ai/deepscout/internal/sources"
	"github.com/deepscout-ai/deepscout/internal/workflows/control"
)

// researchStubs wires deterministic activity stubs into a test environment
// and counts calls so tests can assert on loop behavior.
type researchStubs struct {
	mu sync.Mutex

	generateCalls int
	webCalls      int
	academicCalls int
	documentCalls int
	reflectCalls  int
	synthCalls    int

	queries []string
	// reflect decides the verdict for the nth reflection (1-based).
	reflect func(call int) activities.ReflectionVerdict
	// webErr fails the web worker for matching queries.
	webErr func(query string) error

	onReflect func(call int)
	onWeb     func(in activities.WorkItemInput)
}

func (s *researchStubs) register(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.GenerateQueriesInput) (activities.GenerateQueriesResult, error) {
			s.mu.Lock()
			s.generateCalls++
			s.mu.Unlock()
			return activities.GenerateQueriesResult{Queries: s.queries, TokensUsed: 10}, nil
		},
		activity.RegisterOptions{Name: constants.GenerateQueriesActivity})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.WorkItemInput) (activities.Evidence, error) {
			s.mu.Lock()
			s.webCalls++
			s.mu.Unlock()
			if s.onWeb != nil {
				s.onWeb(in)
			}
			if s.webErr != nil {
				if err := s.webErr(in.Item.Query); err != nil {
					return activities.Evidence{}, err
				}
			}
			return activities.Evidence{
				ItemID: in.Item.ID,
				Kind:   activities.KindWeb,
				Text:   fmt.Sprintf("findings for %s [s1]", in.Item.Query),
				Sources: []sources.Ref{
					{Token: "[s1]", URL: "https://example.com/" + in.Item.ID},
				},
			}, nil
		},
		activity.RegisterOptions{Name: constants.WebSearchWorkerActivity})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.WorkItemInput) (activities.Evidence, error) {
			s.mu.Lock()
			s.academicCalls++
			s.mu.Unlock()
			return activities.Evidence{
				ItemID: in.Item.ID,
				Kind:   activities.KindAcademic,
				Text:   "Title: Paper\nAuthors: A\nSummary: s",
			}, nil
		},
		activity.RegisterOptions{Name: constants.AcademicSearchWorkerActivity})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.WorkItemInput) (activities.Evidence, error) {
			s.mu.Lock()
			s.documentCalls++
			s.mu.Unlock()
			return activities.Evidence{
				ItemID: in.Item.ID,
				Kind:   activities.KindDocument,
				Text:   "document body",
			}, nil
		},
		activity.RegisterOptions{Name: constants.DocumentWorkerActivity})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.ReflectionInput) (activities.ReflectionVerdict, error) {
			s.mu.Lock()
			s.reflectCalls++
			call := s.reflectCalls
			s.mu.Unlock()
			if s.onReflect != nil {
				s.onReflect(call)
			}
			if s.reflect != nil {
				return s.reflect(call), nil
			}
			return activities.ReflectionVerdict{IsSufficient: true, TokensUsed: 5}, nil
		},
		activity.RegisterOptions{Name: constants.ReflectOnEvidenceActivity})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.SynthesisInput) (activities.SynthesisResult, error) {
			s.mu.Lock()
			s.synthCalls++
			s.mu.Unlock()
			return activities.SynthesisResult{
				Answer: fmt.Sprintf("final answer from %d summaries", len(in.Summaries)),
				Sources: []sources.Ref{
					{Token: "[s1]", URL: "https://example.com/a", Label: "example"},
				},
				TokensUsed: 20,
			}, nil
		},
		activity.RegisterOptions{Name: constants.SynthesizeAnswerActivity})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.EmitTaskUpdateInput) error { return nil },
		activity.RegisterOptions{Name: constants.EmitTaskUpdateActivity})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.SessionUpdateInput) (activities.SessionUpdateResult, error) {
			return activities.SessionUpdateResult{Success: true}, nil
		},
		activity.RegisterOptions{Name: constants.UpdateSessionResultActivity})
}

func newResearchEnv(t *testing.T, stubs *researchStubs) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ResearchWorkflow)
	env.RegisterWorkflow(TaskWorkflow)
	env.RegisterWorkflow(ContextQAWorkflow)
	env.RegisterWorkflow(URLSummaryWorkflow)
	stubs.register(env)
	return env
}

func TestResearchSufficientFirstRound(t *testing.T) {
	stubs := &researchStubs{queries: []string{"q1", "q2", "q3"}}
	env := newResearchEnv(t, stubs)

	env.ExecuteWorkflow(ResearchWorkflow, TaskInput{Query: "what is deep research"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result TaskResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.True(t, result.Success)
	assert.False(t, result.Incomplete)
	assert.Equal(t, 1, result.RoundsUsed)
	assert.Contains(t, result.Answer, "final answer")
	assert.Len(t, result.Sources, 1)

	assert.Equal(t, 1, stubs.generateCalls)
	assert.Equal(t, 3, stubs.webCalls)
	assert.Equal(t, 1, stubs.reflectCalls)
	assert.Equal(t, 1, stubs.synthCalls)
}

func TestResearchLoopBudgetCap(t *testing.T) {
	stubs := &researchStubs{
		queries: []string{"q1"},
		reflect: func(call int) activities.ReflectionVerdict {
			return activities.ReflectionVerdict{
				IsSufficient: false,
				KnowledgeGap: "never enough",
				FollowUps:    []activities.FollowUp{{Kind: activities.KindWeb, Query: fmt.Sprintf("follow-up %d", call)}},
			}
		},
	}
	env := newResearchEnv(t, stubs)

	env.ExecuteWorkflow(ResearchWorkflow, TaskInput{Query: "q", InitialQueries: 1, MaxLoops: 10})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result TaskResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.True(t, result.Success)
	assert.Equal(t, 10, result.RoundsUsed)
	assert.Equal(t, 10, stubs.reflectCalls)
	assert.Equal(t, 10, stubs.webCalls)
	assert.Equal(t, 1, stubs.synthCalls)
}

func TestResearchTypedFollowUps(t *testing.T) {
	stubs := &researchStubs{
		queries: []string{"q1"},
		reflect: func(call int) activities.ReflectionVerdict {
			if call == 1 {
				return activities.ReflectionVerdict{
					FollowUps: []activities.FollowUp{
						{Kind: activities.KindWeb, Query: "web follow-up"},
						{Kind: activities.KindAcademic, Query: "academic follow-up"},
					},
				}
			}
			return activities.ReflectionVerdict{IsSufficient: true}
		},
	}
	env := newResearchEnv(t, stubs)

	env.ExecuteWorkflow(ResearchWorkflow, TaskInput{Query: "q", InitialQueries: 1, MaxLoops: 3})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result TaskResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, 2, result.RoundsUsed)
	assert.Equal(t, 2, stubs.webCalls)
	assert.Equal(t, 1, stubs.academicCalls)
}

func TestResearchStopsWithoutFollowUps(t *testing.T) {
	stubs := &researchStubs{
		queries: []string{"q1"},
		reflect: func(call int) activities.ReflectionVerdict {
			return activities.ReflectionVerdict{IsSufficient: false, KnowledgeGap: "stuck"}
		},
	}
	env := newResearchEnv(t, stubs)

	env.ExecuteWorkflow(ResearchWorkflow, TaskInput{Query: "q", InitialQueries: 1, MaxLoops: 5})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result TaskResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.RoundsUsed)
	assert.Equal(t, 1, stubs.reflectCalls)
	assert.Equal(t, 1, stubs.synthCalls)
}

func TestResearchWorkerFailureIsolated(t *testing.T) {
	stubs := &researchStubs{
		queries: []string{"good", "bad", "also good"},
		webErr: func(query string) error {
			if query == "bad" {
				return fmt.Errorf("search provider exploded")
			}
			return nil
		},
	}
	env := newResearchEnv(t, stubs)

	env.ExecuteWorkflow(ResearchWorkflow, TaskInput{Query: "q"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result TaskResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, stubs.synthCalls)
	// Two successful summaries reach synthesis; the failed record is
	// excluded but never aborts the round.
	assert.Contains(t, result.Answer, "2 summaries")
}

func TestResearchDocumentRefsDispatched(t *testing.T) {
	stubs := &researchStubs{queries: []string{"q1"}}
	env := newResearchEnv(t, stubs)

	env.ExecuteWorkflow(ResearchWorkflow, TaskInput{
		Query:        "q",
		DocumentRefs: []string{"loc-1", "loc-2"},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	assert.Equal(t, 1, stubs.webCalls)
	assert.Equal(t, 2, stubs.documentCalls)

	var result TaskResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Contains(t, result.Answer, "3 summaries")
}

func TestResearchCancellationYieldsPartialResult(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ResearchWorkflow)

	stubs := &researchStubs{
		queries: []string{"q1"},
		reflect: func(call int) activities.ReflectionVerdict {
			return activities.ReflectionVerdict{
				FollowUps: []activities.FollowUp{{Kind: activities.KindWeb, Query: "more"}},
			}
		},
	}
	stubs.onReflect = func(call int) {
		if call == 1 {
			env.SignalWorkflow(control.SignalCancel, control.CancelRequest{
				Reason:      "user pressed stop",
				RequestedBy: "alice",
			})
		}
	}
	stubs.register(env)

	env.ExecuteWorkflow(ResearchWorkflow, TaskInput{Query: "q", InitialQueries: 1, MaxLoops: 10})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result TaskResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.False(t, result.Success)
	assert.True(t, result.Incomplete)
	assert.Contains(t, result.ErrorMessage, "user pressed stop")
	assert.Equal(t, 0, stubs.synthCalls)
	assert.GreaterOrEqual(t, result.RoundsUsed, 1)

	// The completed round's evidence rides along in the partial result.
	require.NotEmpty(t, result.Evidence)
	assert.Contains(t, result.Evidence[0].Text, "q1")
}

func TestResearchCancelMidRoundDropsInFlightEvidence(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ResearchWorkflow)

	stubs := &researchStubs{
		queries: []string{"q1", "q2"},
		reflect: func(call int) activities.ReflectionVerdict {
			return activities.ReflectionVerdict{
				FollowUps: []activities.FollowUp{{Kind: activities.KindWeb, Query: "round two"}},
			}
		},
	}
	stubs.onWeb = func(in activities.WorkItemInput) {
		if in.Item.Query == "round two" {
			env.CancelWorkflow()
		}
	}
	stubs.register(env)

	env.ExecuteWorkflow(ResearchWorkflow, TaskInput{Query: "q", InitialQueries: 2, MaxLoops: 5})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result TaskResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.False(t, result.Success)
	assert.True(t, result.Incomplete)
	assert.Equal(t, 0, stubs.synthCalls)

	// Only the round that finished before the cancel counts; the aborted
	// round's records are discarded.
	assert.Equal(t, 1, result.RoundsUsed)
	require.Len(t, result.Evidence, 2)
	for _, ev := range result.Evidence {
		assert.False(t, ev.Failed)
		assert.NotContains(t, ev.Text, "round two")
	}
}

func TestTaskWorkflowRoutesToContextQA(t *testing.T) {
	stubs := &researchStubs{queries: []string{"q1"}}
	env := newResearchEnv(t, stubs)

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.ContextQAInput) (activities.ContextQAResult, error) {
			return activities.ContextQAResult{Answer: "grounded: " + in.Question, TokensUsed: 7}, nil
		},
		activity.RegisterOptions{Name: constants.AnswerFromContextActivity})

	env.ExecuteWorkflow(TaskWorkflow, TaskInput{
		Query:            "who wrote it",
		TaskType:         TaskTypeContextQA,
		GroundingContext: "The report was written by Ada.",
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result TaskResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.True(t, result.Success)
	assert.Equal(t, "grounded: who wrote it", result.Answer)
	assert.Equal(t, 0, stubs.generateCalls)
}

func TestContextQAEmptyGroundingFailsClosed(t *testing.T) {
	stubs := &researchStubs{queries: []string{"q1"}}
	env := newResearchEnv(t, stubs)

	qaCalls := 0
	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.ContextQAInput) (activities.ContextQAResult, error) {
			qaCalls++
			return activities.ContextQAResult{Answer: "should not run"}, nil
		},
		activity.RegisterOptions{Name: constants.AnswerFromContextActivity})

	env.ExecuteWorkflow(ContextQAWorkflow, TaskInput{Query: "q", GroundingContext: "   "})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	assert.Contains(t, env.GetWorkflowError().Error(), "MissingContext")
	assert.Equal(t, 0, qaCalls)
}

func TestTaskWorkflowRoutesToURLSummary(t *testing.T) {
	stubs := &researchStubs{queries: []string{"q1"}}
	env := newResearchEnv(t, stubs)

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.URLSummaryInput) (activities.URLSummaryResult, error) {
			return activities.URLSummaryResult{
				Answer:      "The target URL could not be reached: " + in.URL,
				Unreachable: true,
			}, nil
		},
		activity.RegisterOptions{Name: constants.SummarizeURLActivity})

	env.ExecuteWorkflow(TaskWorkflow, TaskInput{
		Query:     "summarize this",
		TaskType:  TaskTypeURLSummary,
		TargetURL: "https://dead.example.com",
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result TaskResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.True(t, result.Success)
	assert.Contains(t, result.Answer, "could not be reached")
	assert.Equal(t, 0, stubs.generateCalls)
}

func TestTaskWorkflowMissingPayloadFallsBackToResearch(t *testing.T) {
	stubs := &researchStubs{queries: []string{"q1"}}
	env := newResearchEnv(t, stubs)

	env.ExecuteWorkflow(TaskWorkflow, TaskInput{Query: "q", TaskType: TaskTypeContextQA})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result TaskResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, stubs.generateCalls)
	assert.Equal(t, 1, stubs.synthCalls)
}
