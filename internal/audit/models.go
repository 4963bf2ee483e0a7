// Package audit captures structured, append-only events for every state
// change the registry performs. Emission is best-effort: a full buffer or a
// failing sink never fails the operation that produced the event.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"did-registry/pkg/domain"
)

// Action names the event taxonomy.
const (
	ActionEntityRegistered = "entity_registered"
	ActionCredentialGrant  = "credential_granted"
	ActionLogin            = "login"
)

// Event is one audit record.
type Event struct {
	ID         uuid.UUID
	Action     string
	DID        domain.DID // subject of the event
	ActorDID   domain.DID // authenticated identity that caused it, if any
	EntityType domain.EntityType
	Detail     string
	Timestamp  time.Time
}

// Store is an append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}
