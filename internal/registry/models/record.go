// Package models defines the persisted shapes of the identity registry.
package models

import (
	"time"

	"did-registry/internal/hsml"
	"did-registry/pkg/domain"
)

// IdentityRecord is one registry row, keyed by DID. A record is created
// exactly once at successful registration; afterwards only the access-list
// fields (Metadata canAccess + AllowedDIDs) may change, and only through the
// credential authority.
type IdentityRecord struct {
	DID               domain.DID
	PublicKey         string // DID minus the did:key prefix, denormalized
	Metadata          hsml.Document
	RegisteredBy      domain.DID
	NotificationTopic string // set only for Agent records
	AllowedDIDs       []domain.DID
	CreatedAt         time.Time
}

// Type returns the record's entity type discriminant.
func (r *IdentityRecord) Type() domain.EntityType { return r.Metadata.Type() }

// Name returns the record's display name.
func (r *IdentityRecord) Name() string { return r.Metadata.Name() }

// AllowAccess appends a DID to the allowed list if absent. Returns true when
// the list changed. Kept in lockstep with Metadata's canAccess entries by the
// credential authority.
func (r *IdentityRecord) AllowAccess(did domain.DID) bool {
	for _, existing := range r.AllowedDIDs {
		if existing == did {
			return false
		}
	}
	r.AllowedDIDs = append(r.AllowedDIDs, did)
	return true
}

// Clone deep-copies the record so store implementations never hand out
// aliased metadata trees.
func (r *IdentityRecord) Clone() *IdentityRecord {
	out := *r
	out.Metadata = r.Metadata.Clone()
	out.AllowedDIDs = append([]domain.DID(nil), r.AllowedDIDs...)
	return &out
}
