package httptransport

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"did-registry/internal/hsml"
	"did-registry/internal/registry/models"
	"did-registry/internal/registry/service"
	"did-registry/pkg/domain"
	dErrors "did-registry/pkg/domain-errors"
)

type RegistryHandlerSuite struct {
	suite.Suite
}

func TestRegistryHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistryHandlerSuite))
}

func (s *RegistryHandlerSuite) TestHandler_Register() {
	s.T().Run("self-registration succeeds - 201", func(t *testing.T) {
		_, mockRegistry, router := newTestRouter(t)
		expected := &service.RegistrationResult{
			DID:           "did:key:z6MkNew",
			PrivateKeyPEM: "PEM",
			Document:      hsml.Document{"@type": "Person", "name": "ada"},
		}
		mockRegistry.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, req service.RegisterRequest) (*service.RegistrationResult, error) {
				assert.Equal(t, "Person", req.Document.RawType())
				assert.Equal(t, hsml.DefaultContext, req.Document["@context"], "dialect is stamped when omitted")
				assert.Empty(t, req.AuthoringDID)
				return expected, nil
			})

		status, body := doJSON(t, router, http.MethodPost, "/register",
			`{"entity":{"@type":"Person","name":"ada"}}`, nil)

		assert.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "did:key:z6MkNew", body["did"])
		assert.Equal(t, "PEM", body["private_key"])
	})

	s.T().Run("client-supplied context is preserved", func(t *testing.T) {
		_, mockRegistry, router := newTestRouter(t)
		mockRegistry.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, req service.RegisterRequest) (*service.RegistrationResult, error) {
				assert.Equal(t, "https://other.example/context", req.Document["@context"])
				return nil, dErrors.NewKind(dErrors.KindUnrecognizedSchema, "unrecognized schema dialect")
			})

		status, body := doJSON(t, router, http.MethodPost, "/register",
			`{"entity":{"@context":"https://other.example/context","@type":"Person","name":"ada"}}`, nil)

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, string(dErrors.KindUnrecognizedSchema), body["error_kind"])
	})

	s.T().Run("returns 400 when request body is invalid json", func(t *testing.T) {
		_, mockRegistry, router := newTestRouter(t)
		mockRegistry.EXPECT().Register(gomock.Any(), gomock.Any()).Times(0)

		status, body := doJSON(t, router, http.MethodPost, "/register", "{bad-json", nil)

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, string(dErrors.CodeBadRequest), body["error"])
	})

	s.T().Run("returns 400 when entity missing", func(t *testing.T) {
		_, mockRegistry, router := newTestRouter(t)
		mockRegistry.EXPECT().Register(gomock.Any(), gomock.Any()).Times(0)

		status, _ := doJSON(t, router, http.MethodPost, "/register", `{}`, nil)

		assert.Equal(t, http.StatusBadRequest, status)
	})

	s.T().Run("missing fields are enumerated in the envelope", func(t *testing.T) {
		_, mockRegistry, router := newTestRouter(t)
		mockRegistry.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil,
			dErrors.NewKind(dErrors.KindMissingFields, "required fields missing").WithFields("email", "birthDate"))

		status, body := doJSON(t, router, http.MethodPost, "/register",
			`{"entity":{"@type":"Person","name":"ada"}}`, nil)

		assert.Equal(t, http.StatusBadRequest, status)
		assert.ElementsMatch(t, []any{"email", "birthDate"}, body["missing_fields"])
	})
}

func (s *RegistryHandlerSuite) TestHandler_RegisterEntity() {
	const token = "Bearer tok-123"

	s.T().Run("authenticated author is forwarded to the engine", func(t *testing.T) {
		mockAuth, mockRegistry, router := newTestRouter(t)
		mockAuth.EXPECT().Authenticate(gomock.Any(), "tok-123").Return(domain.DID("did:key:z6MkOrg"), nil)
		mockRegistry.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, req service.RegisterRequest) (*service.RegistrationResult, error) {
				assert.Equal(t, domain.DID("did:key:z6MkOrg"), req.AuthoringDID)
				assert.Equal(t, "domain-key-pem", req.DomainKeyPEM)
				return &service.RegistrationResult{DID: "did:key:z6MkCred"}, nil
			})

		status, body := doJSON(t, router, http.MethodPost, "/register_entity",
			`{"entity":{"@type":"Credential","name":"grant"},"domain_key":"domain-key-pem"}`,
			map[string]string{"Authorization": token})

		assert.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "did:key:z6MkCred", body["did"])
		assert.Nil(t, body["private_key"], "credential responses omit the private key")
	})

	s.T().Run("returns 401 without a token", func(t *testing.T) {
		_, mockRegistry, router := newTestRouter(t)
		mockRegistry.EXPECT().Register(gomock.Any(), gomock.Any()).Times(0)

		status, _ := doJSON(t, router, http.MethodPost, "/register_entity",
			`{"entity":{"@type":"Agent","name":"Bot"}}`, nil)

		assert.Equal(t, http.StatusUnauthorized, status)
	})

	s.T().Run("returns 401 when the session is invalid", func(t *testing.T) {
		mockAuth, mockRegistry, router := newTestRouter(t)
		mockAuth.EXPECT().Authenticate(gomock.Any(), "tok-123").
			Return(domain.DID(""), dErrors.New(dErrors.CodeUnauthorized, "session no longer valid"))
		mockRegistry.EXPECT().Register(gomock.Any(), gomock.Any()).Times(0)

		status, _ := doJSON(t, router, http.MethodPost, "/register_entity",
			`{"entity":{"@type":"Agent","name":"Bot"}}`,
			map[string]string{"Authorization": token})

		assert.Equal(t, http.StatusUnauthorized, status)
	})

	s.T().Run("returns 403 when proof of possession fails", func(t *testing.T) {
		mockAuth, mockRegistry, router := newTestRouter(t)
		mockAuth.EXPECT().Authenticate(gomock.Any(), "tok-123").Return(domain.DID("did:key:z6MkOrg"), nil)
		mockRegistry.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil,
			dErrors.NewKind(dErrors.KindProofOfPossessionFailed, "proof key does not match the domain"))

		status, body := doJSON(t, router, http.MethodPost, "/register_entity",
			`{"entity":{"@type":"Credential","name":"grant"},"domain_key":"wrong"}`,
			map[string]string{"Authorization": token})

		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, string(dErrors.KindProofOfPossessionFailed), body["error_kind"])
	})
}

func (s *RegistryHandlerSuite) TestHandler_Lookup() {
	s.T().Run("returns the identity record - 200", func(t *testing.T) {
		_, mockRegistry, router := newTestRouter(t)
		record := &models.IdentityRecord{
			DID:               "did:key:z6MkBot",
			PublicKey:         "z6MkBot",
			Metadata:          hsml.Document{"@type": "Agent", "name": "Bot"},
			RegisteredBy:      "did:key:z6MkOrg",
			NotificationTopic: "bot",
			AllowedDIDs:       []domain.DID{"did:key:z6MkGuest"},
			CreatedAt:         time.Now(),
		}
		mockRegistry.EXPECT().Lookup(gomock.Any(), domain.DID("did:key:z6MkBot")).Return(record, nil)

		status, body := doJSON(t, router, http.MethodGet, "/identities/did:key:z6MkBot", "", nil)

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "did:key:z6MkBot", body["did"])
		assert.Equal(t, "bot", body["notification_topic"])
		assert.Equal(t, []any{"did:key:z6MkGuest"}, body["allowed_dids"])
	})

	s.T().Run("returns 404 for an unknown DID", func(t *testing.T) {
		_, mockRegistry, router := newTestRouter(t)
		mockRegistry.EXPECT().Lookup(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "no identity for this DID"))

		status, body := doJSON(t, router, http.MethodGet, "/identities/did:key:z6MkNope", "", nil)

		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, string(dErrors.CodeNotFound), body["error"])
	})

	s.T().Run("returns 500 when the store fails", func(t *testing.T) {
		_, mockRegistry, router := newTestRouter(t)
		mockRegistry.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))

		status, body := doJSON(t, router, http.MethodGet, "/identities/did:key:z6MkNope", "", nil)

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, string(dErrors.CodeInternal), body["error"])
	})
}
