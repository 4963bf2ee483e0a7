package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"did-registry/internal/auth/models"
	"did-registry/pkg/platform/sentinel"
)

type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]models.Session
}

func New() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[uuid.UUID]models.Session)}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[id]; ok {
		return &session, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemorySessionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

var _ Store = (*InMemorySessionStore)(nil)
