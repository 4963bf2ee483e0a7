package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresStore appends audit events to an outbox table. Downstream
// consumers (or an operator's SQL session) read from there; the registry
// only ever inserts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_outbox (
	id         UUID PRIMARY KEY,
	action     TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the outbox table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("ensure audit_outbox schema: %w", err)
	}
	return nil
}

// outboxPayload is the JSON structure stored per event.
type outboxPayload struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	DID        string `json:"did,omitempty"`
	ActorDID   string `json:"actor_did,omitempty"`
	EntityType string `json:"entity_type,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Timestamp  string `json:"timestamp"`
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload := outboxPayload{
		ID:         event.ID.String(),
		Action:     event.Action,
		DID:        event.DID.String(),
		ActorDID:   event.ActorDID.String(),
		EntityType: string(event.EntityType),
		Detail:     event.Detail,
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	const query = `
		INSERT INTO audit_outbox (id, action, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, event.ID, event.Action, raw, event.Timestamp); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
