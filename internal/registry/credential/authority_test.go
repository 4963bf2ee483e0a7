package credential

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"did-registry/internal/didkey"
	"did-registry/internal/hsml"
	"did-registry/internal/registry/models"
	"did-registry/internal/registry/store"
	"did-registry/pkg/domain"
	dErrors "did-registry/pkg/domain-errors"
)

type AuthoritySuite struct {
	suite.Suite
	ctx       context.Context
	store     *store.InMemory
	authority *Authority

	issuerDID    domain.DID
	domainDID    domain.DID
	domainKeyPEM string
}

func TestAuthoritySuite(t *testing.T) {
	suite.Run(t, new(AuthoritySuite))
}

func (s *AuthoritySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.authority = New(s.store, didkey.Generator{}, slog.New(slog.DiscardHandler))

	s.issuerDID = "did:key:zIssuer"

	var err error
	s.domainDID, s.domainKeyPEM, err = didkey.Generate()
	s.Require().NoError(err)

	s.Require().NoError(s.store.Create(s.ctx, &models.IdentityRecord{
		DID:       s.domainDID,
		PublicKey: didkey.PublicKeyPart(s.domainDID),
		Metadata: hsml.Document{
			"@context": hsml.DefaultContext,
			"@type":    "Agent",
			"name":     "Bot",
			"swid":     s.domainDID.String(),
		},
		RegisteredBy: s.issuerDID,
	}))
}

func (s *AuthoritySuite) credentialDoc(granteeDID string) hsml.Document {
	return hsml.Document{
		"@context":    hsml.DefaultContext,
		"@type":       "Credential",
		"name":        "bot access",
		"description": "grants access to the bot domain",
		"issuedBy": map[string]any{
			"swid": s.issuerDID.String(), "name": "Acme",
		},
		"authorizedForDomain": map[string]any{
			"swid": s.domainDID.String(), "name": "Bot",
		},
		"accessAuthorization": map[string]any{
			"swid": granteeDID, "name": "Guest",
		},
	}
}

func (s *AuthoritySuite) TestGrantsAccess() {
	doc := s.credentialDoc("did:key:zGuest")

	updated, err := s.authority.Authorize(s.ctx, doc, s.issuerDID, s.domainKeyPEM)
	s.Require().NoError(err)

	s.Require().Len(updated.Metadata.CanAccess(), 1)
	s.Equal("did:key:zGuest", updated.Metadata.CanAccess()[0]["swid"])
	s.Equal([]domain.DID{"did:key:zGuest"}, updated.AllowedDIDs)

	// Persisted, not just returned.
	stored, err := s.store.Get(s.ctx, s.domainDID)
	s.Require().NoError(err)
	s.Len(stored.Metadata.CanAccess(), 1)
	s.Equal([]domain.DID{"did:key:zGuest"}, stored.AllowedDIDs)
}

func (s *AuthoritySuite) TestIdempotentGrant() {
	doc := s.credentialDoc("did:key:zGuest")

	_, err := s.authority.Authorize(s.ctx, doc, s.issuerDID, s.domainKeyPEM)
	s.Require().NoError(err)
	_, err = s.authority.Authorize(s.ctx, s.credentialDoc("did:key:zGuest"), s.issuerDID, s.domainKeyPEM)
	s.Require().NoError(err)

	stored, err := s.store.Get(s.ctx, s.domainDID)
	s.Require().NoError(err)
	s.Len(stored.Metadata.CanAccess(), 1, "duplicate grant must not duplicate the entry")
	s.Len(stored.AllowedDIDs, 1)
}

func (s *AuthoritySuite) TestLegacySingleObjectCoerced() {
	rec, err := s.store.Get(s.ctx, s.domainDID)
	s.Require().NoError(err)
	rec.Metadata["canAccess"] = map[string]any{"swid": "did:key:zLegacy", "name": "Old"}
	s.Require().NoError(s.store.Put(s.ctx, rec))

	_, err = s.authority.Authorize(s.ctx, s.credentialDoc("did:key:zGuest"), s.issuerDID, s.domainKeyPEM)
	s.Require().NoError(err)

	stored, err := s.store.Get(s.ctx, s.domainDID)
	s.Require().NoError(err)
	s.Len(stored.Metadata.CanAccess(), 2)
}

func (s *AuthoritySuite) TestMissingCredentialFields() {
	doc := s.credentialDoc("did:key:zGuest")
	delete(doc, "accessAuthorization")

	_, err := s.authority.Authorize(s.ctx, doc, s.issuerDID, s.domainKeyPEM)
	s.True(dErrors.HasKind(err, dErrors.KindMissingCredentialFields))
	s.assertDomainUntouched()
}

func (s *AuthoritySuite) TestIssuerMismatch() {
	doc := s.credentialDoc("did:key:zGuest")

	_, err := s.authority.Authorize(s.ctx, doc, "did:key:zSomeoneElse", s.domainKeyPEM)
	s.True(dErrors.HasKind(err, dErrors.KindIssuerMismatch))
	s.assertDomainUntouched()
}

func (s *AuthoritySuite) TestProofOfPossessionFailed() {
	s.Run("wrong key", func() {
		_, otherKey, err := didkey.Generate()
		s.Require().NoError(err)

		_, err = s.authority.Authorize(s.ctx, s.credentialDoc("did:key:zGuest"), s.issuerDID, otherKey)
		s.True(dErrors.HasKind(err, dErrors.KindProofOfPossessionFailed))
	})

	s.Run("garbage key", func() {
		_, err := s.authority.Authorize(s.ctx, s.credentialDoc("did:key:zGuest"), s.issuerDID, "not a pem")
		s.True(dErrors.HasKind(err, dErrors.KindProofOfPossessionFailed))
	})

	s.Run("missing key", func() {
		_, err := s.authority.Authorize(s.ctx, s.credentialDoc("did:key:zGuest"), s.issuerDID, "")
		s.True(dErrors.HasKind(err, dErrors.KindProofOfPossessionFailed))
	})

	s.assertDomainUntouched()
}

func (s *AuthoritySuite) TestDomainNotRegistered() {
	otherDID, otherKey, err := didkey.Generate()
	s.Require().NoError(err)

	doc := s.credentialDoc("did:key:zGuest")
	doc["authorizedForDomain"] = map[string]any{"swid": otherDID.String(), "name": "Ghost"}

	_, err = s.authority.Authorize(s.ctx, doc, s.issuerDID, otherKey)
	s.True(dErrors.HasKind(err, dErrors.KindDomainNotRegistered))
}

// assertDomainUntouched verifies rejected credentials caused zero mutation.
func (s *AuthoritySuite) assertDomainUntouched() {
	stored, err := s.store.Get(s.ctx, s.domainDID)
	s.Require().NoError(err)
	s.Empty(stored.Metadata.CanAccess())
	s.Empty(stored.AllowedDIDs)
}
