package session

import (
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned when a session doesn't exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session has expired
	ErrSessionExpired = errors.New("session expired")
)

// Session represents a user session with context continuity across research
// tasks. Context carries the latest research results; History carries the
// conversational exchange used to seed follow-up queries.
type Session struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	ExpiresAt time.Time              `json:"expires_at"`
	Metadata  map[string]interface{} `json:"metadata"`
	Context   map[string]interface{} `json:"context"`
	History   []Message              `json:"history"`

	TotalTokensUsed int `json:"total_tokens_used"`
}

// Message represents a message in the session history
type Message struct {
	ID        string                 `json:"id"`
	Role      string                 `json:"role"` // "user", "assistant", "system"
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`

	TokensUsed int `json:"tokens_used,omitempty"`
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// GetContextValue retrieves a value from the session context
func (s *Session) GetContextValue(key string) (interface{}, bool) {
	if s.Context == nil {
		return nil, false
	}
	val, ok := s.Context[key]
	return val, ok
}

// SetContextValue sets a value in the session context
func (s *Session) SetContextValue(key string, value interface{}) {
	if s.Context == nil {
		s.Context = make(map[string]interface{})
	}
	s.Context[key] = value
	s.UpdatedAt = time.Now()
}

// GetRecentHistory returns the most recent messages from history
func (s *Session) GetRecentHistory(count int) []Message {
	if len(s.History) <= count {
		return s.History
	}
	return s.History[len(s.History)-count:]
}

// GetHistorySummary returns recent history formatted for LLM context,
// bounded by a rough token budget.
func (s *Session) GetHistorySummary(maxTokens int) string {
	summary := ""
	currentTokens := 0

	// Start from most recent messages
	for i := len(s.History) - 1; i >= 0; i-- {
		msg := s.History[i]
		// Rough token estimate: 1 token per 4 characters
		msgTokens := len(msg.Content) / 4

		if currentTokens+msgTokens > maxTokens {
			break
		}

		// Prepend to maintain chronological order
		summary = msg.Role + ": " + msg.Content + "\n" + summary
		currentTokens += msgTokens
	}

	return summary
}

// UpdateTokenUsage updates the token usage for the session
func (s *Session) UpdateTokenUsage(tokens int) {
	s.TotalTokensUsed += tokens
	s.UpdatedAt = time.Now()
}
