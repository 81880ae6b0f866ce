package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/cheluen/new-api-workers/internal/relay"
)

// RequestIDMiddleware assigns a correlation ID to each request.
// An inbound X-Request-Id is honored so forwarding hops keep a single
// ID across the chain; otherwise a fresh UUID is generated. The ID is
// stored in the context and echoed back as the X-Request-Id response
// header.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx := relay.WithCorrelationID(r.Context(), requestID)
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
