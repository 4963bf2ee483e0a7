// Package service hosts the registration engine: the state machine that
// takes a candidate HSML document through validation, authorization, DID
// issuance, persistence, and the best-effort agent announcement.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"did-registry/internal/audit"
	"did-registry/internal/didkey"
	"did-registry/internal/hsml"
	"did-registry/internal/notify"
	"did-registry/internal/registry/metrics"
	"did-registry/internal/registry/models"
	"did-registry/internal/registry/store"
	"did-registry/pkg/domain"
	dErrors "did-registry/pkg/domain-errors"
	"did-registry/pkg/platform/sentinel"
)

// DIDIssuer assigns a fresh DID and keypair for a document being registered.
type DIDIssuer interface {
	Issue(ctx context.Context) (domain.DID, string, error)
}

// CredentialAuthorizer runs the Credential issuance protocol and updates the
// granting domain's record.
type CredentialAuthorizer interface {
	Authorize(ctx context.Context, doc hsml.Document, issuerDID domain.DID, domainKeyPEM string) (*models.IdentityRecord, error)
}

// RegisterRequest is one registration attempt.
type RegisterRequest struct {
	Document hsml.Document
	// AuthoringDID is the authenticated identity registering on behalf of
	// the document. Ignored for self-registering types.
	AuthoringDID domain.DID
	// DomainKeyPEM proves possession of a Credential's authorizedForDomain.
	DomainKeyPEM string
}

// RegistrationResult is the successful outcome.
type RegistrationResult struct {
	DID domain.DID
	// PrivateKeyPEM is the fresh private key. Empty for Credential
	// registrations: that key belongs to the document, not to a reusable
	// login identity.
	PrivateKeyPEM string
	Document      hsml.Document
	Warnings      []string
}

// Service is the registration engine.
type Service struct {
	store     store.Store
	issuer    DIDIssuer
	authority CredentialAuthorizer
	notifier  notify.Notifier
	auditor   *audit.Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	tracer    trace.Tracer

	notifyTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithAudit(p *audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func New(st store.Store, iss DIDIssuer, authority CredentialAuthorizer, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:         st,
		issuer:        iss,
		authority:     authority,
		notifier:      notify.Noop{},
		log:           log,
		tracer:        otel.Tracer("did-registry/registry"),
		notifyTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register drives a document through the full registration state machine.
// Validation and authorization reject before any state change; after the
// Credential authority has committed its domain update, a later failure is
// surfaced but not rolled back (documented two-write inconsistency).
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegistrationResult, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Register")
	defer span.End()

	result, err := s.register(ctx, req)
	if err != nil {
		span.RecordError(err)
		var de *dErrors.Error
		if errors.As(err, &de) && de.Kind != "" {
			s.metrics.IncRejected(string(de.Kind))
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("entity.type", string(result.Document.Type())))
	return result, nil
}

func (s *Service) register(ctx context.Context, req RegisterRequest) (*RegistrationResult, error) {
	doc := req.Document
	if doc == nil {
		return nil, dErrors.NewKind(dErrors.KindMalformedInput, "no entity data provided")
	}

	// Received -> Validated
	warnings, err := hsml.Validate(doc)
	if err != nil {
		return nil, err
	}
	entityType := doc.Type()

	// Validated -> Authorized
	if err := s.authorize(ctx, doc, entityType, req); err != nil {
		return nil, err
	}

	// Authorized -> DIDIssued -> Persisted. A conflict on the insert means
	// the issued DID lost a race; reissue rather than trust the pre-check.
	rec, privPEM, err := s.persist(ctx, doc, entityType, req.AuthoringDID)
	if err != nil {
		return nil, err
	}

	// Persisted -> NotificationSent (best-effort)
	if entityType == domain.TypeAgent {
		s.announceAgent(ctx, rec)
	}

	s.metrics.IncRegistered(string(entityType))
	s.auditor.Emit(ctx, audit.Event{
		Action:     audit.ActionEntityRegistered,
		DID:        rec.DID,
		ActorDID:   req.AuthoringDID,
		EntityType: entityType,
		Detail:     doc.Name(),
	})

	result := &RegistrationResult{
		DID:      rec.DID,
		Document: rec.Metadata,
		Warnings: warnings,
	}
	if entityType != domain.TypeCredential {
		result.PrivateKeyPEM = privPEM
	}
	return result, nil
}

// authorize enforces who may register what, and for Credentials delegates to
// the authority (whose domain update commits here, before the Credential's
// own record exists).
func (s *Service) authorize(ctx context.Context, doc hsml.Document, entityType domain.EntityType, req RegisterRequest) error {
	if entityType.CanSelfRegister() {
		return nil
	}

	if req.AuthoringDID.IsZero() {
		return dErrors.NewKind(dErrors.KindUnauthenticated,
			"authentication required to register this entity")
	}
	author, err := s.store.Get(ctx, req.AuthoringDID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.NewKind(dErrors.KindUnauthenticated,
			"authoring DID not found; login required")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "author lookup failed")
	}
	if !author.Type().CanAuthorNewEntities() {
		return dErrors.NewKind(dErrors.KindAuthorNotEligible,
			"only a Person or Organization can register new entities")
	}

	if entityType == domain.TypeCredential {
		if _, err := s.authority.Authorize(ctx, doc, req.AuthoringDID, req.DomainKeyPEM); err != nil {
			return err
		}
		s.metrics.IncCredentialGrant()
		grantee, _ := doc.Ref("accessAuthorization")
		domainRef, _ := doc.Ref("authorizedForDomain")
		s.auditor.Emit(ctx, audit.Event{
			Action:     audit.ActionCredentialGrant,
			DID:        domainRef.SWID,
			ActorDID:   req.AuthoringDID,
			EntityType: domain.TypeCredential,
			Detail:     fmt.Sprintf("granted access to %s", grantee.SWID),
		})
	}
	return nil
}

// persist issues a DID and inserts the record, reissuing on key conflicts.
func (s *Service) persist(ctx context.Context, doc hsml.Document, entityType domain.EntityType, authoringDID domain.DID) (*models.IdentityRecord, string, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		did, privPEM, err := s.issuer.Issue(ctx)
		if err != nil {
			return nil, "", err
		}

		doc.SetSWID(did)
		registeredBy := authoringDID
		if registeredBy.IsZero() {
			registeredBy = did
		}
		rec := &models.IdentityRecord{
			DID:          did,
			PublicKey:    didkey.PublicKeyPart(did),
			Metadata:     doc,
			RegisteredBy: registeredBy,
			CreatedAt:    time.Now(),
		}
		if entityType == domain.TypeAgent {
			rec.NotificationTopic = notify.TopicFromName(doc.Name())
		}

		err = s.store.Create(ctx, rec)
		if errors.Is(err, sentinel.ErrConflict) {
			s.log.Warn("DID insert lost uniqueness race, reissuing", "did", did)
			lastErr = err
			continue
		}
		if err != nil {
			if entityType == domain.TypeCredential {
				s.logOrphanedGrant(doc)
			}
			return nil, "", dErrors.WrapKind(err, dErrors.KindPersistenceFailed, "identity record insert failed")
		}
		return rec, privPEM, nil
	}
	if entityType == domain.TypeCredential {
		s.logOrphanedGrant(doc)
	}
	return nil, "", dErrors.WrapKind(lastErr, dErrors.KindKeyGenUnavailable,
		"could not persist a unique DID within the attempt budget")
}

// logOrphanedGrant records the access-list update that committed before the
// credential's own record could be inserted. The grant stands; the credential
// document does not exist. Operators reconcile from here.
func (s *Service) logOrphanedGrant(doc hsml.Document) {
	domainRef, _ := doc.Ref("authorizedForDomain")
	grantee, _ := doc.Ref("accessAuthorization")
	s.log.Error("credential insert failed after domain access grant committed",
		"domain", domainRef.SWID, "grantee", grantee.SWID)
}

// announceAgent creates the agent's topic and publishes the registration
// announcement. Failures are logged and swallowed; the registration already
// succeeded.
func (s *Service) announceAgent(ctx context.Context, rec *models.IdentityRecord) {
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	topic := rec.NotificationTopic
	if err := s.notifier.CreateTopic(ctx, topic); err != nil {
		s.log.Error("agent topic creation failed", "topic", topic, "err", err)
		return
	}
	message := map[string]string{
		"message": fmt.Sprintf("New Agent registered: %s", rec.Name()),
	}
	if err := s.notifier.Publish(ctx, topic, message); err != nil {
		s.log.Error("agent announcement publish failed", "topic", topic, "err", err)
	}
}

// Lookup returns a stored record by DID.
func (s *Service) Lookup(ctx context.Context, did domain.DID) (*models.IdentityRecord, error) {
	rec, err := s.store.Get(ctx, did)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("DID %s is not registered", did))
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
	}
	return rec, nil
}
