package server

import (
	"context"
	"sync"
)

// MemoryStores keeps profiles and sessions in process memory. Used by tests
// and when no DATABASE_URL is configured.
type MemoryStores struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	sessions map[string]*ChatSession
}

func NewMemoryStores() *MemoryStores {
	return &MemoryStores{
		profiles: make(map[string]Profile),
		sessions: make(map[string]*ChatSession),
	}
}

func (s *MemoryStores) PutProfile(profile Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
}

func (s *MemoryStores) GetProfile(_ context.Context, userID string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return profile, nil
}

func (s *MemoryStores) CreateSession(_ context.Context, session *ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = copySession(session)
	return nil
}

func (s *MemoryStores) LoadSession(_ context.Context, id string) (*ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(session), nil
}

func (s *MemoryStores) SaveSession(_ context.Context, session *ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return ErrSessionNotFound
	}
	s.sessions[session.ID] = copySession(session)
	return nil
}

func copySession(session *ChatSession) *ChatSession {
	cloned := *session
	cloned.Messages = make([]ChatMessage, len(session.Messages))
	copy(cloned.Messages, session.Messages)
	return &cloned
}
