// Package session persists login sessions. Two implementations exist: an
// in-memory store for tests and single-node deployments, and a Redis store
// whose keys expire with the session.
package session

import (
	"context"

	"github.com/google/uuid"

	"did-registry/internal/auth/models"
)

type Store interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	// Delete removes a session. Deleting a missing session returns
	// sentinel.ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error
}
