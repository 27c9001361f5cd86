package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
)

// TestSignalHandlerSetup tests that signal handlers are registered without error
func TestSignalHandlerSetup(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	wf := func(ctx workflow.Context) (string, error) {
		handler := &SignalHandler{
			WorkflowID: workflow.GetInfo(ctx).WorkflowExecution.ID,
			Logger:     workflow.GetLogger(ctx),
		}
		handler.Setup(ctx)

		if handler.IsCancelled() {
			return "", nil
		}
		return "ok", nil
	}

	env.RegisterWorkflow(wf)
	env.ExecuteWorkflow(wf)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result string
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, "ok", result)
}

// TestSignalHandlerCancel verifies the cancel signal flips handler state.
func TestSignalHandlerCancel(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	wf := func(ctx workflow.Context) (string, error) {
		handler := &SignalHandler{
			WorkflowID: workflow.GetInfo(ctx).WorkflowExecution.ID,
			Logger:     workflow.GetLogger(ctx),
		}
		handler.Setup(ctx)

		_ = workflow.Await(ctx, func() bool { return handler.IsCancelled() })
		return handler.Reason(), nil
	}

	env.RegisterWorkflow(wf)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(SignalCancel, CancelRequest{Reason: "user requested", RequestedBy: "alice"})
	}, 10*time.Millisecond)
	env.ExecuteWorkflow(wf)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var reason string
	require.NoError(t, env.GetWorkflowResult(&reason))
	assert.Equal(t, "user requested", reason)
}

// TestSignalHandlerQuery verifies the control state query handler.
func TestSignalHandlerQuery(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	wf := func(ctx workflow.Context) error {
		handler := &SignalHandler{
			WorkflowID: workflow.GetInfo(ctx).WorkflowExecution.ID,
			Logger:     workflow.GetLogger(ctx),
		}
		handler.Setup(ctx)
		_ = workflow.Await(ctx, func() bool { return handler.IsCancelled() })
		return nil
	}

	env.RegisterWorkflow(wf)
	env.RegisterDelayedCallback(func() {
		val, err := env.QueryWorkflow(QueryControlState)
		require.NoError(t, err)
		var state WorkflowControlState
		require.NoError(t, val.Get(&state))
		assert.False(t, state.IsCancelled)

		env.SignalWorkflow(SignalCancel, CancelRequest{Reason: "done"})
	}, 10*time.Millisecond)
	env.ExecuteWorkflow(wf)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
}
