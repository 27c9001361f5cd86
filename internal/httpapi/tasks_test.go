package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap/zaptest"

	"github.com/deepscout-ai/deepscout/internal/config"
	"github.com/deepscout-ai/deepscout/internal/workflows"
	"github.com/deepscout-ai/deepscout/internal/workflows/control"
)

type fakeRun struct {
	id    string
	runID string
}

func (f *fakeRun) GetID() string    { return f.id }
func (f *fakeRun) GetRunID() string { return f.runID }
func (f *fakeRun) Get(ctx context.Context, valuePtr interface{}) error {
	return nil
}
func (f *fakeRun) GetWithOptions(ctx context.Context, valuePtr interface{}, options client.WorkflowRunGetOptions) error {
	return nil
}

type fakeStarter struct {
	startErr  error
	signalErr error
	cancelErr error

	startedOptions client.StartWorkflowOptions
	startedName    string
	startedInput   workflows.TaskInput

	signalledWorkflowID string
	signalledName       string
	signalledArg        interface{}

	cancelledWorkflowID string
}

func (f *fakeStarter) ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.startedOptions = options
	f.startedName, _ = workflow.(string)
	if len(args) > 0 {
		f.startedInput, _ = args[0].(workflows.TaskInput)
	}
	return &fakeRun{id: options.ID, runID: "run-1"}, nil
}

func (f *fakeStarter) SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error {
	if f.signalErr != nil {
		return f.signalErr
	}
	f.signalledWorkflowID = workflowID
	f.signalledName = signalName
	f.signalledArg = arg
	return nil
}

func (f *fakeStarter) CancelWorkflow(ctx context.Context, workflowID, runID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelledWorkflowID = workflowID
	return nil
}

func testResearchConfig() config.ResearchConfig {
	return config.ResearchConfig{
		Low:            config.EffortTier{InitialQueries: 1, MaxLoops: 1},
		Medium:         config.EffortTier{InitialQueries: 3, MaxLoops: 3},
		High:           config.EffortTier{InitialQueries: 5, MaxLoops: 10},
		MaxConcurrency: 5,
	}
}

func newTasksServer(t *testing.T, starter *fakeStarter) *httptest.Server {
	t.Helper()
	h := NewTasksHandler(starter, testResearchConfig(), "deepscout-tasks", zaptest.NewLogger(t))
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSubmitTaskResolvesEffortTier(t *testing.T) {
	starter := &fakeStarter{}
	srv := newTasksServer(t, starter)

	body, _ := json.Marshal(SubmitTaskRequest{
		Query:     "how do transformers work",
		SessionID: "sess-1",
		Effort:    "high",
	})
	resp, err := http.Post(srv.URL+"/api/v1/tasks", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out SubmitTaskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.WorkflowID)
	assert.Equal(t, "run-1", out.RunID)

	assert.Equal(t, "TaskWorkflow", starter.startedName)
	assert.Equal(t, "deepscout-tasks", starter.startedOptions.TaskQueue)
	assert.Equal(t, 5, starter.startedInput.InitialQueries)
	assert.Equal(t, 10, starter.startedInput.MaxLoops)
	assert.Equal(t, 5, starter.startedInput.MaxConcurrency)
	assert.Equal(t, "sess-1", starter.startedInput.SessionID)
}

func TestSubmitTaskDefaultsToMediumTier(t *testing.T) {
	starter := &fakeStarter{}
	srv := newTasksServer(t, starter)

	body, _ := json.Marshal(SubmitTaskRequest{Query: "q"})
	resp, err := http.Post(srv.URL+"/api/v1/tasks", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Equal(t, 3, starter.startedInput.InitialQueries)
	assert.Equal(t, 3, starter.startedInput.MaxLoops)
}

func TestSubmitTaskRequiresQuery(t *testing.T) {
	srv := newTasksServer(t, &fakeStarter{})

	body, _ := json.Marshal(SubmitTaskRequest{Query: "   "})
	resp, err := http.Post(srv.URL+"/api/v1/tasks", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitTaskStartFailure(t *testing.T) {
	starter := &fakeStarter{startErr: fmt.Errorf("temporal down")}
	srv := newTasksServer(t, starter)

	body, _ := json.Marshal(SubmitTaskRequest{Query: "q"})
	resp, err := http.Post(srv.URL+"/api/v1/tasks", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestSubmitTaskMethodNotAllowed(t *testing.T) {
	srv := newTasksServer(t, &fakeStarter{})

	resp, err := http.Get(srv.URL + "/api/v1/tasks")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCancelTask(t *testing.T) {
	starter := &fakeStarter{}
	srv := newTasksServer(t, starter)

	body, _ := json.Marshal(CancelTaskRequest{Reason: "changed my mind", RequestedBy: "alice"})
	resp, err := http.Post(srv.URL+"/api/v1/tasks/task-abc/cancel", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "task-abc", starter.signalledWorkflowID)
	assert.Equal(t, control.SignalCancel, starter.signalledName)
	req, ok := starter.signalledArg.(control.CancelRequest)
	require.True(t, ok)
	assert.Equal(t, "changed my mind", req.Reason)
	assert.Equal(t, "alice", req.RequestedBy)

	// The hard cancel goes out too so in-flight workers abort.
	assert.Equal(t, "task-abc", starter.cancelledWorkflowID)
}

func TestCancelTaskDefaultsReason(t *testing.T) {
	starter := &fakeStarter{}
	srv := newTasksServer(t, starter)

	resp, err := http.Post(srv.URL+"/api/v1/tasks/task-abc/cancel", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, ok := starter.signalledArg.(control.CancelRequest)
	require.True(t, ok)
	assert.Equal(t, "cancelled by caller", req.Reason)
}

func TestCancelTaskCancelFailure(t *testing.T) {
	starter := &fakeStarter{cancelErr: fmt.Errorf("no such workflow")}
	srv := newTasksServer(t, starter)

	resp, err := http.Post(srv.URL+"/api/v1/tasks/task-abc/cancel", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestCancelTaskUnknownAction(t *testing.T) {
	srv := newTasksServer(t, &fakeStarter{})

	resp, err := http.Post(srv.URL+"/api/v1/tasks/task-abc/pause", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
