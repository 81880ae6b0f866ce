package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cheluen/new-api-workers/internal/auth"
	"github.com/cheluen/new-api-workers/internal/relay"
)

type Server struct {
	Router *chi.Mux
	logger *slog.Logger
	httpd  *http.Server
}

// New builds the router. Relay routes sit behind the auth middleware;
// /healthz stays open for probes. There is no request timeout middleware:
// streaming completions hold the connection open for as long as the
// upstream keeps producing.
func New(port int, logger *slog.Logger, authenticator auth.Authenticator, engine *relay.Engine) *Server {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "relay-gateway")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(authenticator))
		r.Get("/models", engine.HandleModels)
		r.Post("/chat/completions", engine.HandleChatCompletions)
		r.Post("/embeddings", engine.HandleEmbeddings)
	})

	return &Server{
		Router: r,
		logger: logger,
		httpd: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
			// WriteTimeout stays zero so long-lived SSE responses are
			// never cut off by the server itself.
		},
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting server", slog.String("addr", s.httpd.Addr))
	if err := s.httpd.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpd.Shutdown(ctx)
}
