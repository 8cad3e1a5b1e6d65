package memory

import (
	"context"
	"sync"

	"brawl-service/internal/domain"
)

// SessionStore is an in-memory token resolver seeded with known sessions,
// standing in for the auth service's session storage in dev and tests.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Identity
}

func NewSessionStore(sessions map[string]domain.Identity) *SessionStore {
	if sessions == nil {
		sessions = make(map[string]domain.Identity)
	}
	return &SessionStore{sessions: sessions}
}

// Put registers a session token for an identity.
func (s *SessionStore) Put(token string, id domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = id
}

func (s *SessionStore) Resolve(_ context.Context, token string) (domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.sessions[token]; ok {
		return id, nil
	}
	return domain.Identity{}, domain.ErrSessionInvalid
}
