package store

import (
	"context"
	"sync"

	"did-registry/internal/registry/models"
	"did-registry/pkg/domain"
	"did-registry/pkg/platform/sentinel"
)

// InMemory is a concurrency-safe map-backed Store. Useful for tests, demos,
// or as a default ephemeral backend.
type InMemory struct {
	mu   sync.RWMutex
	data map[domain.DID]*models.IdentityRecord
}

func NewInMemory() *InMemory {
	return &InMemory{data: make(map[domain.DID]*models.IdentityRecord)}
}

func (s *InMemory) Get(ctx context.Context, did domain.DID) (*models.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[did]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemory) Create(ctx context.Context, rec *models.IdentityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[rec.DID]; exists {
		return sentinel.ErrConflict
	}
	s.data[rec.DID] = rec.Clone()
	return nil
}

func (s *InMemory) Put(ctx context.Context, rec *models.IdentityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.DID] = rec.Clone()
	return nil
}

func (s *InMemory) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}
