package in_memory

import (
	"context"
	"sync"

	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
)

type SessionStorage struct {
	mu       sync.RWMutex
	sessions []model.ChatSession
	limit    int
}

func NewSessionStorage() *SessionStorage {
	return &SessionStorage{
		sessions: make([]model.ChatSession, 0),
		limit:    model.MaxStoredSessions,
	}
}

func (s *SessionStorage) ListSessions(_ context.Context) ([]model.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]model.ChatSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		session.Messages = model.CloneMessages(session.Messages)
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *SessionStorage) SaveSession(_ context.Context, session model.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.Messages = model.CloneMessages(session.Messages)
	s.sessions = model.UpsertSession(s.sessions, session, s.limit)
	return nil
}

func (s *SessionStorage) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = model.RemoveSession(s.sessions, id)
	return nil
}

func (s *SessionStorage) ClearSessions(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make([]model.ChatSession, 0)
	return nil
}
