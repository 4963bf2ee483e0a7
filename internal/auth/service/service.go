// Package service implements key-based login. Possession of the private key
// issued at registration is the whole credential: the service re-derives the
// DID from the submitted key and checks it against the registry.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"did-registry/internal/audit"
	"did-registry/internal/auth/device"
	"did-registry/internal/auth/models"
	"did-registry/internal/didkey"
	"did-registry/internal/registry/metrics"
	registrystore "did-registry/internal/registry/store"
	"did-registry/pkg/domain"
	dErrors "did-registry/pkg/domain-errors"
	"did-registry/pkg/platform/sentinel"
)

const DefaultSessionTTL = 24 * time.Hour

type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TokenService signs and validates the bearer tokens handed out on login.
type TokenService interface {
	GenerateToken(did string, sessionID uuid.UUID, expiresIn time.Duration) (string, error)
	ExtractSessionID(tokenString string) (uuid.UUID, error)
}

type LoginRequest struct {
	PrivateKeyPEM string
	UserAgent     string
}

type LoginResult struct {
	Token     string     `json:"token"`
	DID       domain.DID `json:"did"`
	Name      string     `json:"name,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
}

type Service struct {
	registry registrystore.Lookup
	sessions SessionStore
	tokens   TokenService
	log      *slog.Logger

	sessionTTL time.Duration
	auditor    *audit.Publisher
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

func WithAudit(p *audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(registry registrystore.Lookup, sessions SessionStore, tokens TokenService, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		registry:   registry,
		sessions:   sessions,
		tokens:     tokens,
		log:        log,
		sessionTTL: DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates a private key and opens a session. Only Person and
// Organization identities may log in; agents and credentials hold keys for
// other protocols, not interactive sessions.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	did, err := didkey.DeriveDID(req.PrivateKeyPEM)
	if err != nil {
		return nil, dErrors.NewKind(dErrors.KindUnauthenticated, "private key is missing or malformed")
	}

	record, err := s.registry.Get(ctx, did)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.NewKind(dErrors.KindNotRegistered, "no identity registered for this key")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "looking up identity")
	}

	if t := record.Type(); t != domain.TypePerson && t != domain.TypeOrganization {
		return nil, dErrors.NewKind(dErrors.KindIneligibleForLogin,
			"only persons and organizations may log in").WithFields(string(t))
	}

	now := time.Now()
	session := &models.Session{
		ID:        uuid.New(),
		DID:       did,
		Name:      record.Name(),
		Device:    device.ParseUserAgent(req.UserAgent),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "creating session")
	}

	token, err := s.tokens.GenerateToken(did.String(), session.ID, s.sessionTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "signing token")
	}

	s.log.Info("login", "did", did, "device", session.Device)
	s.metrics.IncLogin()
	s.auditor.Emit(ctx, audit.Event{
		Action:     audit.ActionLogin,
		DID:        did,
		EntityType: record.Type(),
		Detail:     session.Device,
	})

	return &LoginResult{
		Token:     token,
		DID:       did,
		Name:      record.Name(),
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Authenticate resolves a bearer token to the DID it was issued for. It fails
// if the token is invalid or the backing session is gone or expired.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.DID, error) {
	sessionID, err := s.tokens.ExtractSessionID(token)
	if err != nil {
		return "", err
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.New(dErrors.CodeUnauthorized, "session no longer valid")
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "looking up session")
	}

	if session.Expired(time.Now()) {
		return "", dErrors.New(dErrors.CodeUnauthorized, "session has expired")
	}
	return session.DID, nil
}

// Logout ends the session behind a token. Logging out of an already-deleted
// session succeeds: the end state is the same.
func (s *Service) Logout(ctx context.Context, token string) error {
	sessionID, err := s.tokens.ExtractSessionID(token)
	if err != nil {
		return err
	}

	err = s.sessions.Delete(ctx, sessionID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "deleting session")
	}
	return nil
}
