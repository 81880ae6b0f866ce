// Package relay is the request routing and relay engine: it selects a
// channel for the requested model, adapts the request to the provider's wire
// format, dispatches it, streams or buffers the response back unmodified,
// and meters token usage into the quota ledger.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/cheluen/new-api-workers/internal/adapter"
	"github.com/cheluen/new-api-workers/internal/auth"
	"github.com/cheluen/new-api-workers/internal/dispatch"
	"github.com/cheluen/new-api-workers/internal/domain"
	"github.com/cheluen/new-api-workers/internal/ledger"
	"github.com/cheluen/new-api-workers/internal/meter"
	"github.com/cheluen/new-api-workers/internal/registry"
	"github.com/cheluen/new-api-workers/internal/selector"
	"github.com/cheluen/new-api-workers/internal/tokens"
)

const (
	maxRequestBytes  = 8 << 20
	maxBufferedBytes = 16 << 20
	streamBufBytes   = 32 * 1024
)

// Engine ties the selector, adapter, dispatcher, meter, and ledger together.
// Each request runs on its own goroutine with no shared mutable state beyond
// the selector's cache.
type Engine struct {
	selector   *selector.Selector
	dispatcher *dispatch.Dispatcher
	meter      *meter.Meter
	ledger     ledger.Ledger
	registry   registry.Registry
	logger     *slog.Logger

	// estimator is nil unless usage estimation is enabled; with it, requests
	// whose upstream omits usage still bill estimated prompt tokens.
	estimator *tokens.Estimator
}

// Option customizes an Engine.
type Option func(*Engine)

// WithEstimator enables prompt-token estimation for responses without usage.
func WithEstimator(est *tokens.Estimator) Option {
	return func(e *Engine) { e.estimator = est }
}

// New creates a relay engine.
func New(sel *selector.Selector, disp *dispatch.Dispatcher, m *meter.Meter, led ledger.Ledger, reg registry.Registry, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		selector:   sel,
		dispatcher: disp,
		meter:      m,
		ledger:     led,
		registry:   reg,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleChatCompletions relays POST /v1/chat/completions.
func (e *Engine) HandleChatCompletions(w http.ResponseWriter, r *http.Request) {
	e.relay(w, r, false)
}

// HandleEmbeddings relays POST /v1/embeddings. Embeddings bill prompt tokens
// only.
func (e *Engine) HandleEmbeddings(w http.ResponseWriter, r *http.Request) {
	e.relay(w, r, true)
}

func (e *Engine) relay(w http.ResponseWriter, r *http.Request, embeddings bool) {
	ctx := r.Context()
	correlationID := CorrelationIDFromContext(ctx)

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		WriteError(w, auth.ErrInvalidKey)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		WriteError(w, domain.InvalidRequest("failed to read request body"))
		return
	}
	defer r.Body.Close()

	model, err := requestModel(body)
	if err != nil {
		WriteError(w, err)
		return
	}

	// Allow-list check happens before any channel lookup.
	if !identity.AllowsModel(model) {
		WriteError(w, domain.ErrModelNotAllowed)
		return
	}

	channel, err := e.selector.Select(ctx, model)
	if err != nil {
		if errors.Is(err, domain.ErrNoChannelAvailable) {
			WriteError(w, domain.ErrNoChannelAvailable)
			return
		}
		e.logger.Error("channel selection failed",
			slog.String("request_id", correlationID),
			slog.String("model", model),
			slog.String("error", err.Error()))
		WriteError(w, &domain.RelayError{
			Code:    "channel_selection_failed",
			Message: "channel selection failed",
			Status:  http.StatusServiceUnavailable,
		})
		return
	}

	upstream, err := adapter.BuildUpstreamRequest(channel, r.URL.Path, body, r.Header)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp, err := e.dispatcher.Dispatch(ctx, http.MethodPost, upstream.URL, upstream.Headers, upstream.Body, correlationID)
	if err != nil {
		e.logger.Error("upstream dispatch failed",
			slog.String("request_id", correlationID),
			slog.String("channel", channel.Name),
			slog.String("error", err.Error()))
		WriteError(w, err)
		// The request reached dispatch; record the failure with a zero
		// status as the sentinel.
		e.finalize(r.Context(), identity, channel, model, domain.Usage{}, 0, correlationID)
		return
	}
	defer resp.Body.Close()

	var usage domain.Usage
	if isEventStream(resp.Header.Get("Content-Type")) {
		usage = e.relayStream(w, resp, correlationID)
	} else {
		usage = e.relayBuffered(w, resp, correlationID)
	}

	// Estimation only applies to successful responses; an upstream error
	// bills whatever usage it reported, which is usually nothing.
	if usage.Total() == 0 && e.estimator != nil && resp.StatusCode < http.StatusMultipleChoices {
		usage.PromptTokens = e.estimator.EstimatePrompt(model, body)
	}
	if embeddings {
		usage.CompletionTokens = 0
	}

	e.finalize(r.Context(), identity, channel, model, usage, resp.StatusCode, correlationID)
}

// relayBuffered forwards a non-streaming response in one write and extracts
// usage from the buffered body.
func (e *Engine) relayBuffered(w http.ResponseWriter, resp *http.Response, correlationID string) domain.Usage {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBufferedBytes))
	if err != nil {
		e.logger.Warn("upstream body read failed",
			slog.String("request_id", correlationID),
			slog.String("error", err.Error()))
	}

	copyHeaders(w, resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(body); err != nil {
		e.logger.Warn("client write failed",
			slog.String("request_id", correlationID),
			slog.String("error", err.Error()))
	}

	return meter.ParseUsage(body)
}

// relayStream forwards the event stream chunk-by-chunk while a tee'd scanner
// watches for usage objects. The scan never delays forwarding; a flush
// follows every chunk to preserve time-to-first-byte.
func (e *Engine) relayStream(w http.ResponseWriter, resp *http.Response, correlationID string) domain.Usage {
	copyHeaders(w, resp.Header)
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	scanner := meter.NewStreamScanner()
	tee := io.TeeReader(resp.Body, scanner)
	buf := make([]byte, streamBufBytes)
	for {
		n, readErr := tee.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				// Caller disconnected. Stop forwarding, release the
				// upstream connection, and flush whatever usage the
				// scanner captured so far.
				e.logger.Info("caller disconnected mid-stream",
					slog.String("request_id", correlationID))
				break
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				e.logger.Warn("upstream stream ended abnormally",
					slog.String("request_id", correlationID),
					slog.String("error", readErr.Error()))
			}
			break
		}
	}
	return scanner.Usage()
}

// finalize performs the single usage flush for a request that reached
// dispatch: one usage record, one token debit, one account debit, attempted
// in parallel. Failures are logged, never surfaced; the response has already
// been delivered.
func (e *Engine) finalize(ctx context.Context, identity *auth.Identity, channel *domain.Channel, model string, usage domain.Usage, statusCode int, correlationID string) {
	quota := e.meter.Billed(usage)

	// The request context may already be canceled (client disconnect);
	// accounting still has to run.
	flushCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		rec := &domain.UsageRecord{
			AccountID:        identity.AccountID,
			TokenID:          identity.TokenID,
			ChannelID:        channel.ID,
			Model:            model,
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			Quota:            quota,
			CorrelationID:    correlationID,
			StatusCode:       statusCode,
		}
		if err := e.ledger.RecordUsage(flushCtx, rec); err != nil {
			e.logger.Error("usage record write failed",
				slog.String("request_id", correlationID),
				slog.String("error", err.Error()))
		}
	}()
	go func() {
		defer wg.Done()
		if err := e.ledger.DebitToken(flushCtx, identity.TokenID, quota); err != nil {
			e.logger.Error("token debit failed",
				slog.String("request_id", correlationID),
				slog.Int64("token_id", identity.TokenID),
				slog.String("error", err.Error()))
		}
	}()
	go func() {
		defer wg.Done()
		if err := e.ledger.DebitAccount(flushCtx, identity.AccountID, quota); err != nil {
			e.logger.Error("account debit failed",
				slog.String("request_id", correlationID),
				slog.Int64("account_id", identity.AccountID),
				slog.String("error", err.Error()))
		}
	}()
	wg.Wait()
}

// requestModel extracts the model field from the request body.
func requestModel(body []byte) (string, error) {
	var probe struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return "", domain.InvalidRequest("request body is not valid JSON")
	}
	if strings.TrimSpace(probe.Model) == "" {
		return "", domain.InvalidRequest("model is required")
	}
	return probe.Model, nil
}

func isEventStream(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "text/event-stream")
}

// copyHeaders relays the upstream headers verbatim, minus Content-Length,
// which no longer holds for a re-framed body.
func copyHeaders(w http.ResponseWriter, header http.Header) {
	for k, vals := range header {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
}
