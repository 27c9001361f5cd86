package activities

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/deepscout-ai/deepscout/internal/metrics"
	"github.com/deepscout-ai/deepscout/internal/session"
)

// UpdateSessionResult updates the session with final results from workflow execution
func (a *Activities) UpdateSessionResult(ctx context.Context, input SessionUpdateInput) (SessionUpdateResult, error) {
	a.logger.Info("Updating session with results",
		zap.String("session_id", input.SessionID),
		zap.Int("tokens_used", input.TokensUsed),
		zap.Int("rounds_used", input.RoundsUsed),
	)

	if input.SessionID == "" {
		return SessionUpdateResult{
			Success: false,
			Error:   "session ID is required",
		}, fmt.Errorf("session ID is required")
	}

	sess, err := a.sessionManager.GetSession(ctx, input.SessionID)
	if err != nil {
		a.logger.Error("Failed to get session", zap.Error(err))
		return SessionUpdateResult{
			Success: false,
			Error:   fmt.Sprintf("Failed to get session: %v", err),
		}, err
	}

	sess.UpdateTokenUsage(input.TokensUsed)
	metrics.RecordSessionTokens(input.TokensUsed)

	if input.Query != "" {
		msg := session.Message{
			ID:        fmt.Sprintf("msg-%d", time.Now().UnixNano()),
			Role:      "user",
			Content:   input.Query,
			Timestamp: time.Now(),
		}
		if err := a.sessionManager.AddMessage(ctx, input.SessionID, msg); err != nil {
			a.logger.Warn("Failed to add user message to history", zap.Error(err))
		}
	}
	if input.Result != "" {
		msg := session.Message{
			ID:         fmt.Sprintf("msg-%d", time.Now().UnixNano()),
			Role:       "assistant",
			Content:    input.Result,
			Timestamp:  time.Now(),
			TokensUsed: input.TokensUsed,
		}
		if err := a.sessionManager.AddMessage(ctx, input.SessionID, msg); err != nil {
			a.logger.Warn("Failed to add message to history", zap.Error(err))
		}
	}

	// Maintain conversational context for follow-up tasks
	sess.SetContextValue("last_updated_at", time.Now().UTC().Format(time.RFC3339))
	sess.SetContextValue("total_tokens_used", sess.TotalTokensUsed)
	if input.TokensUsed > 0 {
		sess.SetContextValue("last_tokens_used", input.TokensUsed)
	}
	if input.RoundsUsed > 0 {
		sess.SetContextValue("last_rounds_used", input.RoundsUsed)
	}
	if input.Result != "" {
		sess.SetContextValue("last_response", truncate(input.Result, 500))
	}

	if err := a.sessionManager.UpdateSession(ctx, sess); err != nil {
		a.logger.Error("Failed to update session", zap.Error(err))
		return SessionUpdateResult{
			Success: false,
			Error:   fmt.Sprintf("Failed to update session: %v", err),
		}, err
	}

	return SessionUpdateResult{Success: true}, nil
}
