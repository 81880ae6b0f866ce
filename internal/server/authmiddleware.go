package server

import (
	"net/http"

	"github.com/cheluen/new-api-workers/internal/auth"
	"github.com/cheluen/new-api-workers/internal/relay"
)

// AuthMiddleware validates API keys and injects the caller identity into
// the request context. The API key is extracted from the Authorization
// header (Bearer token format). Failures are written in the OpenAI error
// envelope so clients see the same shape on every path.
func AuthMiddleware(authenticator auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, err := auth.ExtractKey(r)
			if err != nil {
				relay.WriteError(w, auth.ErrInvalidKey)
				return
			}

			identity, err := authenticator.Authenticate(r.Context(), apiKey)
			if err != nil {
				relay.WriteError(w, err)
				return
			}

			ctx := auth.WithIdentity(r.Context(), identity)
			AddLogField(ctx, "token", identity.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
