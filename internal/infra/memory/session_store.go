package memory

import (
	"context"
	"sync"
	"time"

	"quizdesk/internal/domain"
)

// SessionStore is an in-memory implementation of app.AdminSessionStore.
type SessionStore struct {
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]sessionEntry
}

type sessionEntry struct {
	session   domain.AdminSession
	expiresAt time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		clock:    time.Now,
		sessions: make(map[string]sessionEntry),
	}
}

func (s *SessionStore) Save(_ context.Context, token string, session domain.AdminSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = sessionEntry{session: session, expiresAt: s.clock().Add(ttl)}
	return nil
}

func (s *SessionStore) Get(_ context.Context, token string) (domain.AdminSession, error) {
	now := s.clock()
	s.mu.RLock()
	entry, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return domain.AdminSession{}, domain.ErrUnauthorized
	}
	if !entry.expiresAt.After(now) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return domain.AdminSession{}, domain.ErrUnauthorized
	}
	return entry.session, nil
}

func (s *SessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
