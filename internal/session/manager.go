package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/deepscout-ai/deepscout/internal/metrics"
)

// Manager handles session management with Redis backend
type Manager struct {
	client      *redis.Client
	logger      *zap.Logger
	ttl         time.Duration
	mu          sync.RWMutex
	localCache  map[string]*Session  // Local cache for performance
	cacheAccess map[string]time.Time // Track last access time for LRU
	maxSessions int
}

// NewManager creates a new session manager
func NewManager(redisAddr string, logger *zap.Logger) (*Manager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewManagerWithClient(client, logger), nil
}

// NewManagerWithClient wraps an existing Redis client. Used by tests and by
// callers that share one client across components.
func NewManagerWithClient(client *redis.Client, logger *zap.Logger) *Manager {
	return &Manager{
		client:      client,
		logger:      logger,
		ttl:         24 * time.Hour, // Default session TTL
		localCache:  make(map[string]*Session),
		cacheAccess: make(map[string]time.Time),
		maxSessions: 10000, // Max sessions to keep in local cache
	}
}

// CreateSession creates a new session
func (m *Manager) CreateSession(ctx context.Context, userID string, metadata map[string]interface{}) (*Session, error) {
	return m.newSession(ctx, uuid.New().String(), userID, metadata)
}

// CreateSessionWithID creates a new session with a specific ID, or returns
// the existing session when the caller already owns it.
func (m *Manager) CreateSessionWithID(ctx context.Context, sessionID string, userID string, metadata map[string]interface{}) (*Session, error) {
	existing, _ := m.GetSession(ctx, sessionID)
	if existing != nil {
		if existing.UserID != userID {
			// Session belongs to a different user; mint a fresh ID rather
			// than letting this caller attach to it.
			m.logger.Warn("Attempted to reuse session ID from different user, generating new ID",
				zap.String("requested_session_id", sessionID),
				zap.String("requesting_user", userID),
				zap.String("existing_owner", existing.UserID),
			)
			return m.CreateSession(ctx, userID, metadata)
		}
		return existing, nil
	}
	return m.newSession(ctx, sessionID, userID, metadata)
}

func (m *Manager) newSession(ctx context.Context, sessionID, userID string, metadata map[string]interface{}) (*Session, error) {
	session := &Session{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		ExpiresAt: time.Now().Add(m.ttl),
		Metadata:  metadata,
		Context:   make(map[string]interface{}),
		History:   make([]Message, 0),
	}

	if err := m.saveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	m.localCache[sessionID] = session
	m.cacheAccess[sessionID] = time.Now()
	m.cleanupLocalCache()
	metrics.SessionCacheSize.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	m.logger.Info("Created new session",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
	)
	metrics.SessionsCreated.Inc()
	return session, nil
}

// GetSession retrieves a session by ID
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	// Check local cache first
	m.mu.RLock()
	if session, ok := m.localCache[sessionID]; ok {
		m.mu.RUnlock()
		metrics.SessionCacheHits.Inc()
		if session.IsExpired() {
			m.DeleteSession(ctx, sessionID)
			return nil, ErrSessionExpired
		}
		m.mu.Lock()
		m.cacheAccess[sessionID] = time.Now()
		m.mu.Unlock()
		return session, nil
	}
	m.mu.RUnlock()
	metrics.SessionCacheMisses.Inc()

	data, err := m.client.Get(ctx, m.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if session.IsExpired() {
		m.DeleteSession(ctx, sessionID)
		return nil, ErrSessionExpired
	}

	m.mu.Lock()
	m.localCache[sessionID] = &session
	m.cacheAccess[sessionID] = time.Now()
	m.cleanupLocalCache()
	metrics.SessionCacheSize.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	return &session, nil
}

// UpdateSession updates an existing session
func (m *Manager) UpdateSession(ctx context.Context, session *Session) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}

	session.UpdatedAt = time.Now()

	if err := m.saveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	m.localCache[session.ID] = session
	m.mu.Unlock()

	return nil
}

// DeleteSession deletes a session
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if err := m.client.Del(ctx, m.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	m.mu.Lock()
	delete(m.localCache, sessionID)
	delete(m.cacheAccess, sessionID)
	metrics.SessionCacheSize.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	m.logger.Info("Deleted session", zap.String("session_id", sessionID))
	return nil
}

// ExtendSession extends the TTL of a session
func (m *Manager) ExtendSession(ctx context.Context, sessionID string, duration time.Duration) error {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.ExpiresAt = time.Now().Add(duration)
	return m.UpdateSession(ctx, session)
}

// AddMessage adds a message to session history
func (m *Manager) AddMessage(ctx context.Context, sessionID string, msg Message) error {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.History = append(session.History, msg)

	// Limit history size
	maxHistory := 100
	if len(session.History) > maxHistory {
		session.History = session.History[len(session.History)-maxHistory:]
	}

	return m.UpdateSession(ctx, session)
}

// UpdateContext updates session context
func (m *Manager) UpdateContext(ctx context.Context, sessionID string, key string, value interface{}) error {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.SetContextValue(key, value)
	return m.UpdateSession(ctx, session)
}

// CleanupExpired removes expired sessions
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	keys, err := m.client.Keys(ctx, "session:*").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	cleaned := 0
	for _, key := range keys {
		data, err := m.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}

		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}

		if session.IsExpired() {
			if err := m.client.Del(ctx, key).Err(); err == nil {
				cleaned++
			}
		}
	}

	m.logger.Info("Cleaned up expired sessions", zap.Int("count", cleaned))
	return cleaned, nil
}

func (m *Manager) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (m *Manager) saveSession(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = m.ttl
	}

	return m.client.Set(ctx, m.sessionKey(session.ID), data, ttl).Err()
}

func (m *Manager) cleanupLocalCache() {
	// Remove oldest entries if cache is too large using LRU
	if len(m.localCache) <= m.maxSessions {
		return
	}

	type accessEntry struct {
		id   string
		time time.Time
	}

	entries := make([]accessEntry, 0, len(m.localCache))
	for id := range m.localCache {
		accessTime, exists := m.cacheAccess[id]
		if !exists {
			accessTime = time.Time{}
		}
		entries = append(entries, accessEntry{id: id, time: accessTime})
	}

	// Sort by access time (oldest first)
	for i := 0; i < len(entries)-1; i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].time.Before(entries[i].time) {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}

	toRemove := m.maxSessions / 2
	for i := 0; i < toRemove && i < len(entries); i++ {
		delete(m.localCache, entries[i].id)
		delete(m.cacheAccess, entries[i].id)
		metrics.SessionCacheEvictions.Inc()
	}
}

// Ping reports Redis reachability for health checks.
func (m *Manager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Close closes the session manager
func (m *Manager) Close() error {
	return m.client.Close()
}
