// Package store provides persistence for identity records, with an in-memory
// implementation for tests and development and a PostgreSQL implementation
// for production.
package store

import (
	"context"

	"did-registry/internal/registry/models"
	"did-registry/pkg/domain"
)

// Store abstracts identity record persistence. Implementations must be safe
// for concurrent use and atomic per DID.
type Store interface {
	// Get retrieves a record by DID. Returns sentinel.ErrNotFound when no
	// record exists.
	Get(ctx context.Context, did domain.DID) (*models.IdentityRecord, error)
	// Create inserts a record only if its DID is free; returns
	// sentinel.ErrConflict otherwise. Registration uses this so the
	// issue-then-insert race resolves at the store, not the pre-check.
	Create(ctx context.Context, rec *models.IdentityRecord) error
	// Put inserts or replaces the record keyed by its DID.
	Put(ctx context.Context, rec *models.IdentityRecord) error
	// Count reports the number of stored records.
	Count(ctx context.Context) (int, error)
}

// Lookup is the read-only subset consumed by components that never write.
type Lookup interface {
	Get(ctx context.Context, did domain.DID) (*models.IdentityRecord, error)
}
