// Package credential enforces the Credential issuance protocol: issuer
// binding, proof of possession of the granting domain's key, and the
// idempotent access-list update on the domain record.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"did-registry/internal/hsml"
	"did-registry/internal/registry/models"
	"did-registry/internal/registry/store"
	"did-registry/pkg/domain"
	dErrors "did-registry/pkg/domain-errors"
	"did-registry/pkg/platform/sentinel"
)

// KeyDeriver recovers the DID controlled by a piece of private key material.
type KeyDeriver interface {
	DeriveDID(privPEM string) (domain.DID, error)
}

// Authority validates Credential documents and maintains the two views of a
// domain's access list (metadata canAccess and the allowed DID column) in a
// single store write. It never inserts the Credential's own record; that is
// the registration engine's job after this authority returns success.
type Authority struct {
	store store.Store
	keys  KeyDeriver
	log   *slog.Logger
}

func New(s store.Store, keys KeyDeriver, log *slog.Logger) *Authority {
	return &Authority{store: s, keys: keys, log: log}
}

// Authorize runs the full protocol for one Credential document and returns
// the updated domain record. No state changes before every check has passed.
func (a *Authority) Authorize(ctx context.Context, doc hsml.Document, issuerDID domain.DID, domainKeyPEM string) (*models.IdentityRecord, error) {
	issuedBy, _ := doc.Ref("issuedBy")
	authDomain, _ := doc.Ref("authorizedForDomain")
	accessAuth, hasAccessAuth := doc.Ref("accessAuthorization")

	if issuedBy.SWID.IsZero() || authDomain.SWID.IsZero() || !hasAccessAuth || accessAuth.SWID.IsZero() {
		return nil, dErrors.NewKind(dErrors.KindMissingCredentialFields,
			"credential is missing required swid fields in issuedBy, authorizedForDomain, or accessAuthorization")
	}

	if issuedBy.SWID != issuerDID {
		return nil, dErrors.NewKind(dErrors.KindIssuerMismatch,
			"the issuedBy swid must match the authenticated identity's DID")
	}

	if domainKeyPEM == "" {
		return nil, dErrors.NewKind(dErrors.KindProofOfPossessionFailed,
			fmt.Sprintf("provide the private key for %q to prove domain access", authDomain.Name))
	}
	derivedDID, err := a.keys.DeriveDID(domainKeyPEM)
	if err != nil {
		return nil, dErrors.WrapKind(err, dErrors.KindProofOfPossessionFailed,
			fmt.Sprintf("invalid domain private key for %q", authDomain.Name))
	}
	if derivedDID != authDomain.SWID {
		return nil, dErrors.NewKind(dErrors.KindProofOfPossessionFailed,
			"domain private key does not match the authorizedForDomain DID")
	}

	domainRec, err := a.store.Get(ctx, authDomain.SWID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.NewKind(dErrors.KindDomainNotRegistered,
			fmt.Sprintf("domain DID %s not found; register %q first", authDomain.SWID, authDomain.Name))
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "domain record lookup failed")
	}

	// Idempotent merge: both views of the access list change together or not
	// at all, then persist in one write.
	granted := domainRec.Metadata.GrantAccess(accessAuth.Raw)
	domainRec.AllowAccess(accessAuth.SWID)
	if !granted {
		a.log.Info("access already granted",
			"domain", authDomain.SWID, "grantee", accessAuth.SWID)
	}

	if err := a.store.Put(ctx, domainRec); err != nil {
		return nil, dErrors.WrapKind(err, dErrors.KindPersistenceFailed,
			"failed to update domain access list")
	}
	return domainRec, nil
}
