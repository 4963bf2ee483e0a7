package models

import (
	"time"

	"github.com/google/uuid"

	"did-registry/pkg/domain"
)

// Session is a logged-in identity. Sessions are keyed by a random ID and
// expire on their own; logout deletes them early.
type Session struct {
	ID        uuid.UUID  `json:"id"`
	DID       domain.DID `json:"did"`
	Name      string     `json:"name,omitempty"`
	Device    string     `json:"device,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
