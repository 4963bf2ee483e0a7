//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"did-registry/internal/hsml"
	"did-registry/internal/registry/models"
	"did-registry/internal/registry/store"
	"did-registry/pkg/domain"
	"did-registry/pkg/platform/sentinel"
	"did-registry/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "did_keys"))
}

func testRecord(did string) *models.IdentityRecord {
	return &models.IdentityRecord{
		DID:       domain.DID(did),
		PublicKey: "z" + did,
		Metadata: hsml.Document{
			"@context": hsml.DefaultContext,
			"@type":    "Agent",
			"name":     "Bot",
			"swid":     did,
		},
		RegisteredBy:      domain.DID("did:key:zOwner"),
		NotificationTopic: "bot",
		AllowedDIDs:       []domain.DID{"did:key:zGuest"},
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	rec := testRecord("did:key:zRoundTrip")
	s.Require().NoError(s.store.Create(ctx, rec))

	found, err := s.store.Get(ctx, rec.DID)
	s.Require().NoError(err)
	s.Equal(rec.DID, found.DID)
	s.Equal(rec.PublicKey, found.PublicKey)
	s.Equal("Bot", found.Name())
	s.Equal(domain.TypeAgent, found.Type())
	s.Equal("bot", found.NotificationTopic)
	s.Equal(rec.AllowedDIDs, found.AllowedDIDs)
	s.Equal(domain.DID("did:key:zOwner"), found.RegisteredBy)
	s.False(found.CreatedAt.IsZero())
}

func (s *PostgresStoreSuite) TestGetUnknown() {
	_, err := s.store.Get(context.Background(), "did:key:zNope")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCreateConflict() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, testRecord("did:key:zDupe")))
	err := s.store.Create(ctx, testRecord("did:key:zDupe"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestPutUpdatesAccessFields() {
	ctx := context.Background()
	rec := testRecord("did:key:zDomain")
	s.Require().NoError(s.store.Create(ctx, rec))

	rec.Metadata.GrantAccess(map[string]any{"swid": "did:key:zNew", "name": "New Grantee"})
	rec.AllowAccess("did:key:zNew")
	s.Require().NoError(s.store.Put(ctx, rec))

	found, err := s.store.Get(ctx, rec.DID)
	s.Require().NoError(err)
	s.Len(found.Metadata.CanAccess(), 1)
	s.Contains(found.AllowedDIDs, domain.DID("did:key:zNew"))
}

// TestConcurrentCreateSameDID verifies that racing insert-only writes for one
// DID resolve to exactly one success at the unique constraint.
func (s *PostgresStoreSuite) TestConcurrentCreateSameDID() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, testRecord("did:key:zRace"))
			switch {
			case err == nil:
				successes.Add(1)
			default:
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())

	count, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}
