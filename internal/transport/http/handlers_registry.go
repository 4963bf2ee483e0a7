package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"did-registry/internal/hsml"
	"did-registry/internal/registry/models"
	"did-registry/internal/registry/service"
	"did-registry/pkg/domain"
	dErrors "did-registry/pkg/domain-errors"
	"did-registry/pkg/platform/httputil"
	"did-registry/pkg/requestcontext"
)

//go:generate mockgen -source=handlers_registry.go -destination=mocks/registry-mocks.go -package=mocks RegistryService

// RegistryService is the slice of the registration engine the transport
// consumes.
type RegistryService interface {
	Register(ctx context.Context, req service.RegisterRequest) (*service.RegistrationResult, error)
	Lookup(ctx context.Context, did domain.DID) (*models.IdentityRecord, error)
}

type RegistryHandler struct {
	registry RegistryService
	sessions *AuthHandler
}

func NewRegistryHandler(registry RegistryService, sessions *AuthHandler) *RegistryHandler {
	return &RegistryHandler{registry: registry, sessions: sessions}
}

func (h *RegistryHandler) Register(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.With(h.sessions.RequireSession).Post("/register_entity", h.handleRegisterEntity)
	r.Get("/identities/{did}", h.handleLookup)
}

type registerRequest struct {
	Entity map[string]any `json:"entity"`
	// DomainKey is the private key proving control of a Credential's
	// authorizedForDomain. Ignored for other entity types.
	DomainKey string `json:"domain_key,omitempty"`
}

type registerResponse struct {
	DID        domain.DID    `json:"did"`
	PrivateKey string        `json:"private_key,omitempty"`
	Entity     hsml.Document `json:"entity"`
	Warnings   []string      `json:"warnings,omitempty"`
}

type identityResponse struct {
	DID               domain.DID    `json:"did"`
	PublicKey         string        `json:"public_key"`
	Entity            hsml.Document `json:"entity"`
	RegisteredBy      domain.DID    `json:"registered_by"`
	NotificationTopic string        `json:"notification_topic,omitempty"`
	AllowedDIDs       []domain.DID  `json:"allowed_dids,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

func decodeRegisterRequest(w http.ResponseWriter, r *http.Request) (registerRequest, bool) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return req, false
	}
	if req.Entity == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "entity is required"))
		return req, false
	}
	return req, true
}

// handleRegister is anonymous self-registration. The schema dialect is
// stamped in when omitted, matching how form-based clients submit documents.
func (h *RegistryHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRegisterRequest(w, r)
	if !ok {
		return
	}

	doc := hsml.Document(req.Entity)
	doc.EnsureContext()

	result, err := h.registry.Register(r.Context(), service.RegisterRequest{Document: doc})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeRegistration(w, result)
}

// handleRegisterEntity registers an entity on behalf of the logged-in
// identity. RequireSession has already resolved the caller DID.
func (h *RegistryHandler) handleRegisterEntity(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRegisterRequest(w, r)
	if !ok {
		return
	}

	result, err := h.registry.Register(r.Context(), service.RegisterRequest{
		Document:     hsml.Document(req.Entity),
		AuthoringDID: requestcontext.CallerDID(r.Context()),
		DomainKeyPEM: req.DomainKey,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeRegistration(w, result)
}

func (h *RegistryHandler) handleLookup(w http.ResponseWriter, r *http.Request) {
	did := domain.DID(chi.URLParam(r, "did"))

	record, err := h.registry.Lookup(r.Context(), did)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, identityResponse{
		DID:               record.DID,
		PublicKey:         record.PublicKey,
		Entity:            record.Metadata,
		RegisteredBy:      record.RegisteredBy,
		NotificationTopic: record.NotificationTopic,
		AllowedDIDs:       record.AllowedDIDs,
		CreatedAt:         record.CreatedAt,
	})
}

func writeRegistration(w http.ResponseWriter, result *service.RegistrationResult) {
	httputil.WriteJSON(w, http.StatusCreated, registerResponse{
		DID:        result.DID,
		PrivateKey: result.PrivateKeyPEM,
		Entity:     result.Document,
		Warnings:   result.Warnings,
	})
}
