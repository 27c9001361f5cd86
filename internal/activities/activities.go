package activities

import (
	"go.uber.org/zap"

	"github.com/deepscout-ai/deepscout/internal/docstore"
	"github.com/deepscout-ai/deepscout/internal/llm"
	"github.com/deepscout-ai/deepscout/internal/search"
	"github.com/deepscout-ai/deepscout/internal/session"
	"github.com/deepscout-ai/deepscout/internal/sources"
)

// Activities struct holds dependencies for activities
type Activities struct {
	llm            *llm.Client
	search         *search.Client
	docs           *docstore.Store
	sources        *sources.Store
	sessionManager *session.Manager
	logger         *zap.Logger
}

// NewActivities creates a new activities instance with dependencies
func NewActivities(
	llmClient *llm.Client,
	searchClient *search.Client,
	docs *docstore.Store,
	srcStore *sources.Store,
	sessionManager *session.Manager,
	logger *zap.Logger,
) *Activities {
	return &Activities{
		llm:            llmClient,
		search:         searchClient,
		docs:           docs,
		sources:        srcStore,
		sessionManager: sessionManager,
		logger:         logger,
	}
}
