// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// domain services, and encode; business rules stay out of this package.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"did-registry/pkg/platform/httputil"
)

// NewRouter wires all public endpoints. Registration of authored entities and
// logout require a valid session token; self-registration and login do not.
func NewRouter(registry *RegistryHandler, auth *AuthHandler, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestMetadata(log))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	auth.Register(r)
	registry.Register(r)
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
