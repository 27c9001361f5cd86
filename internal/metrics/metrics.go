package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Workflow metrics
	WorkflowsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepscout_workflows_started_total",
			Help: "Total number of workflows started",
		},
		[]string{"workflow_type"},
	)

	WorkflowsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepscout_workflows_completed_total",
			Help: "Total number of workflows completed",
		},
		[]string{"workflow_type", "status"},
	)

	WorkflowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepscout_workflow_duration_seconds",
			Help:    "Workflow execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"workflow_type"},
	)

	ResearchRounds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deepscout_research_rounds",
			Help:    "Evidence-gathering rounds used per research task",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10},
		},
	)

	// Task metrics
	TasksSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepscout_tasks_submitted_total",
			Help: "Total number of tasks submitted",
		},
	)

	TaskTokensUsed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deepscout_task_tokens_used",
			Help:    "Number of tokens used per task",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
		},
	)

	// Work item metrics
	WorkItemsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepscout_work_items_dispatched_total",
			Help: "Total number of retrieval work items dispatched",
		},
		[]string{"kind"},
	)

	WorkItemsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepscout_work_items_failed_total",
			Help: "Total number of retrieval work items that failed",
		},
		[]string{"kind"},
	)

	WorkItemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepscout_work_item_duration_ms",
			Help:    "Retrieval work item duration in milliseconds",
			Buckets: []float64{100, 500, 1000, 2000, 5000, 10000, 30000},
		},
		[]string{"kind"},
	)

	// Session metrics
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepscout_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	SessionTokensTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepscout_session_tokens_total",
			Help: "Total tokens used across all sessions",
		},
	)

	// Session cache metrics
	SessionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepscout_session_cache_hits_total",
			Help: "Total number of session cache hits",
		},
	)

	SessionCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepscout_session_cache_misses_total",
			Help: "Total number of session cache misses",
		},
	)

	SessionCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deepscout_session_cache_size",
			Help: "Current number of sessions in local cache",
		},
	)

	SessionCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepscout_session_cache_evictions_total",
			Help: "Total number of sessions evicted from cache",
		},
	)

	// Streaming metrics
	StreamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deepscout_stream_subscribers",
			Help: "Currently connected event stream subscribers",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepscout_events_published_total",
			Help: "Lifecycle events published to the stream manager",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepscout_events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		},
	)

	// LLM metrics
	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepscout_llm_calls_total",
			Help: "Total number of LLM completion calls",
		},
		[]string{"purpose", "status"},
	)

	// Search metrics
	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepscout_search_requests_total",
			Help: "Total number of outbound search requests",
		},
		[]string{"kind", "status"},
	)
)

// RecordWorkflowMetrics records metrics for a completed workflow
func RecordWorkflowMetrics(workflowType, status string, durationSeconds float64, tokensUsed int) {
	WorkflowsCompleted.WithLabelValues(workflowType, status).Inc()
	if durationSeconds > 0 {
		WorkflowDuration.WithLabelValues(workflowType).Observe(durationSeconds)
	}
	if tokensUsed > 0 {
		TaskTokensUsed.Observe(float64(tokensUsed))
	}
}

// RecordWorkItemMetrics records metrics for one retrieval work item
func RecordWorkItemMetrics(kind string, failed bool, durationMs float64) {
	WorkItemsDispatched.WithLabelValues(kind).Inc()
	if failed {
		WorkItemsFailed.WithLabelValues(kind).Inc()
	}
	if durationMs > 0 {
		WorkItemDuration.WithLabelValues(kind).Observe(durationMs)
	}
}

// RecordSessionTokens increments the session tokens counter
func RecordSessionTokens(tokens int) {
	if tokens > 0 {
		SessionTokensTotal.Add(float64(tokens))
	}
}
