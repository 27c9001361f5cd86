package constants

// Activity names used for workflow registration and execution.
// Using constants eliminates magic strings and ensures consistency.
const (
	// Planning activities
	GenerateQueriesActivity = "GenerateQueries"

	// Retrieval worker activities
	WebSearchWorkerActivity      = "WebSearchWorker"
	AcademicSearchWorkerActivity = "AcademicSearchWorker"
	DocumentWorkerActivity       = "DocumentWorker"

	// Reflection and synthesis activities
	ReflectOnEvidenceActivity = "ReflectOnEvidence"
	SynthesizeAnswerActivity  = "SynthesizeAnswer"
	AnswerFromContextActivity = "AnswerFromContext"
	SummarizeURLActivity      = "SummarizeURL"

	// Session management activities
	UpdateSessionResultActivity = "UpdateSessionResult"

	// Streaming activities
	EmitTaskUpdateActivity = "EmitTaskUpdate"
)

// Workflow names used for registration and client-side starts.
const (
	TaskWorkflowName = "TaskWorkflow"
)
