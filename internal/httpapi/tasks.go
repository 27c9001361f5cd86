package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/deepscout-ai/deepscout/internal/config"
	"github.com/deepscout-ai/deepscout/internal/constants"
	"github.com/deepscout-ai/deepscout/internal/metrics"
	"github.com/deepscout-ai/deepscout/internal/workflows"
	"github.com/deepscout-ai/deepscout/internal/workflows/control"
)

// WorkflowStarter is the slice of the Temporal client the task API needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error
	CancelWorkflow(ctx context.Context, workflowID, runID string) error
}

// TasksHandler exposes task submission and cancellation.
type TasksHandler struct {
	starter   WorkflowStarter
	research  config.ResearchConfig
	taskQueue string
	logger    *zap.Logger
}

func NewTasksHandler(starter WorkflowStarter, research config.ResearchConfig, taskQueue string, logger *zap.Logger) *TasksHandler {
	return &TasksHandler{
		starter:   starter,
		research:  research,
		taskQueue: taskQueue,
		logger:    logger,
	}
}

// RegisterRoutes registers task routes on the provided mux.
func (h *TasksHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/tasks", h.handleSubmit)
	mux.HandleFunc("/api/v1/tasks/", h.handleTaskAction)
}

// SubmitTaskRequest is the task submission payload. Effort picks the
// research tier; the per-workflow knobs are resolved server-side so
// workflow inputs stay explicit.
type SubmitTaskRequest struct {
	Query            string              `json:"query"`
	SessionID        string              `json:"session_id,omitempty"`
	UserID           string              `json:"user_id,omitempty"`
	TaskType         string              `json:"task_type,omitempty"`
	GroundingContext string              `json:"grounding_context,omitempty"`
	TargetURL        string              `json:"target_url,omitempty"`
	DocumentRefs     []string            `json:"document_refs,omitempty"`
	Effort           string              `json:"effort,omitempty"`
	ModelTier        string              `json:"model_tier,omitempty"`
	History          []workflows.Message `json:"history,omitempty"`
}

// SubmitTaskResponse identifies the started workflow.
type SubmitTaskResponse struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

func (h *TasksHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req SubmitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, `{"error":"query is required"}`, http.StatusBadRequest)
		return
	}

	tier := h.research.Tier(req.Effort)
	input := workflows.TaskInput{
		Query:            req.Query,
		UserID:           req.UserID,
		SessionID:        req.SessionID,
		History:          req.History,
		TaskType:         req.TaskType,
		GroundingContext: req.GroundingContext,
		TargetURL:        req.TargetURL,
		DocumentRefs:     req.DocumentRefs,
		InitialQueries:   tier.InitialQueries,
		MaxLoops:         tier.MaxLoops,
		MaxConcurrency:   h.research.MaxConcurrency,
		ModelTier:        req.ModelTier,
	}

	workflowID := fmt.Sprintf("task-%s", uuid.New().String())
	run, err := h.starter.ExecuteWorkflow(r.Context(), client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: h.taskQueue,
	}, constants.TaskWorkflowName, input)
	if err != nil {
		h.logger.Error("Failed to start task workflow", zap.Error(err))
		http.Error(w, `{"error":"failed to start task"}`, http.StatusInternalServerError)
		return
	}

	metrics.TasksSubmitted.Inc()
	metrics.WorkflowsStarted.WithLabelValues(constants.TaskWorkflowName).Inc()
	h.logger.Info("Task submitted",
		zap.String("workflow_id", run.GetID()),
		zap.String("task_type", req.TaskType),
		zap.String("effort", req.Effort),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(SubmitTaskResponse{
		WorkflowID: run.GetID(),
		RunID:      run.GetRunID(),
	})
}

// CancelTaskRequest carries the optional cancellation reason.
type CancelTaskRequest struct {
	Reason      string `json:"reason,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// handleTaskAction dispatches /api/v1/tasks/{id}/cancel.
func (h *TasksHandler) handleTaskAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/tasks/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "cancel" {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	workflowID := parts[0]

	var req CancelTaskRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Reason == "" {
		req.Reason = "cancelled by caller"
	}

	err := h.starter.SignalWorkflow(r.Context(), workflowID, "", control.SignalCancel, control.CancelRequest{
		Reason:      req.Reason,
		RequestedBy: req.RequestedBy,
	})
	if err != nil {
		h.logger.Error("Failed to signal cancellation",
			zap.String("workflow_id", workflowID),
			zap.Error(err),
		)
		http.Error(w, `{"error":"failed to cancel task"}`, http.StatusInternalServerError)
		return
	}

	// The signal records the reason; the hard cancel makes in-flight
	// retrieval workers abort instead of running out the round.
	if err := h.starter.CancelWorkflow(r.Context(), workflowID, ""); err != nil {
		h.logger.Error("Failed to cancel workflow",
			zap.String("workflow_id", workflowID),
			zap.Error(err),
		)
		http.Error(w, `{"error":"failed to cancel task"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Task cancellation requested", zap.String("workflow_id", workflowID))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "cancellation requested"})
}
