package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"did-registry/internal/auth/models"
	"did-registry/pkg/platform/sentinel"
)

type SessionStoreSuite struct {
	suite.Suite
	store *InMemorySessionStore
}

func (s *SessionStoreSuite) SetupTest() {
	s.store = New()
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreSuite))
}

func makeSession() *models.Session {
	return &models.Session{
		ID:        uuid.New(),
		DID:       "did:key:z6MkTest",
		Name:      "ada",
		Device:    "Chrome on Mac OS X",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

func (s *SessionStoreSuite) TestSessionLookup() {
	s.Run("returns stored session when found", func() {
		session := makeSession()
		s.Require().NoError(s.store.Create(context.Background(), session))

		found, err := s.store.FindByID(context.Background(), session.ID)
		s.Require().NoError(err)
		s.Equal(session, found)
	})

	s.Run("returns ErrNotFound when session does not exist", func() {
		_, err := s.store.FindByID(context.Background(), uuid.New())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *SessionStoreSuite) TestSessionDeletion() {
	s.Run("delete removes the session", func() {
		session := makeSession()
		s.Require().NoError(s.store.Create(context.Background(), session))

		s.Require().NoError(s.store.Delete(context.Background(), session.ID))

		_, err := s.store.FindByID(context.Background(), session.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("deleting a missing session returns ErrNotFound", func() {
		err := s.store.Delete(context.Background(), uuid.New())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *SessionStoreSuite) TestStoredSessionIsDetached() {
	session := makeSession()
	s.Require().NoError(s.store.Create(context.Background(), session))

	session.Name = "mutated after store"

	found, err := s.store.FindByID(context.Background(), session.ID)
	s.Require().NoError(err)
	s.Equal("ada", found.Name)
}
