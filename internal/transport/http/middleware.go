package httptransport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "did-registry/pkg/domain-errors"
	"did-registry/pkg/platform/httputil"
	"did-registry/pkg/requestcontext"
)

// RequestMetadata stamps each request with an ID and a request-scoped time,
// and logs the request line on completion.
func RequestMetadata(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()

			ctx := requestcontext.WithRequestID(r.Context(), requestID)
			ctx = requestcontext.WithTime(ctx, start)
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))

			log.Info("http request",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start),
			)
		})
	}
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireSession authenticates the bearer token and injects the caller DID
// into the request context. Requests without a valid session are rejected.
func (h *AuthHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
			return
		}

		did, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		ctx := requestcontext.WithCallerDID(r.Context(), did)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
