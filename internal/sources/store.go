package sources

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store hands out session-scoped registries. Registries live as long as the
// session TTL and are evicted afterwards; a lookup after eviction starts a
// fresh registry (tokens are only meaningful within one session anyway).
type Store struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewStore creates a registry store with the given session TTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{cache: gocache.New(ttl, 10*time.Minute)}
}

// For returns the registry for a session, creating it on first use.
func (s *Store) For(sessionID string) *Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(sessionID); ok {
		// Refresh TTL on access so an active research session keeps its tokens.
		reg := v.(*Registry)
		s.cache.SetDefault(sessionID, reg)
		return reg
	}
	reg := NewRegistry()
	s.cache.SetDefault(sessionID, reg)
	return reg
}

// Drop discards a session's registry.
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(sessionID)
}
