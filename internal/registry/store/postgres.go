package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"did-registry/internal/registry/models"
	"did-registry/pkg/domain"
	"did-registry/pkg/platform/sentinel"
)

// Postgres persists identity records in a did_keys table. The primary key on
// did is what makes Create safe under concurrent registrations racing for
// the same derived DID.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS did_keys (
	did           TEXT PRIMARY KEY,
	public_key    TEXT NOT NULL,
	metadata      JSONB NOT NULL,
	registered_by TEXT NOT NULL,
	kafka_topic   TEXT,
	allowed_dids  TEXT[] NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the did_keys table when it does not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure did_keys schema: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, did domain.DID) (*models.IdentityRecord, error) {
	const query = `
		SELECT did, public_key, metadata, registered_by, kafka_topic, allowed_dids, created_at
		FROM did_keys WHERE did = $1
	`
	row := s.db.QueryRowContext(ctx, query, did.String())

	var (
		rec      models.IdentityRecord
		didCol   string
		regBy    string
		topic    sql.NullString
		rawMeta  []byte
		allowed  []string
	)
	err := row.Scan(&didCol, &rec.PublicKey, &rawMeta, &regBy, &topic, pq.Array(&allowed), &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select identity record: %w", err)
	}

	rec.DID = domain.DID(didCol)
	rec.RegisteredBy = domain.DID(regBy)
	rec.NotificationTopic = topic.String
	rec.AllowedDIDs = make([]domain.DID, len(allowed))
	for i, a := range allowed {
		rec.AllowedDIDs[i] = domain.DID(a)
	}
	if err := json.Unmarshal(rawMeta, &rec.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", didCol, err)
	}
	return &rec, nil
}

func (s *Postgres) Create(ctx context.Context, rec *models.IdentityRecord) error {
	const query = `
		INSERT INTO did_keys (did, public_key, metadata, registered_by, kafka_topic, allowed_dids)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	err := s.exec(ctx, query, rec)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert identity record: %w", err)
	}
	return nil
}

func (s *Postgres) Put(ctx context.Context, rec *models.IdentityRecord) error {
	const query = `
		INSERT INTO did_keys (did, public_key, metadata, registered_by, kafka_topic, allowed_dids)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (did) DO UPDATE SET
			metadata = EXCLUDED.metadata,
			allowed_dids = EXCLUDED.allowed_dids
	`
	if err := s.exec(ctx, query, rec); err != nil {
		return fmt.Errorf("upsert identity record: %w", err)
	}
	return nil
}

func (s *Postgres) exec(ctx context.Context, query string, rec *models.IdentityRecord) error {
	rawMeta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	allowed := make([]string, len(rec.AllowedDIDs))
	for i, a := range rec.AllowedDIDs {
		allowed[i] = a.String()
	}
	var topic sql.NullString
	if rec.NotificationTopic != "" {
		topic = sql.NullString{String: rec.NotificationTopic, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, query,
		rec.DID.String(), rec.PublicKey, rawMeta, rec.RegisteredBy.String(), topic, pq.Array(allowed))
	return err
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM did_keys`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count identity records: %w", err)
	}
	return count, nil
}

// compile-time interface checks
var (
	_ Store = (*Postgres)(nil)
	_ Store = (*InMemory)(nil)
)
