// Package adapter maps a selected channel, a logical request path, and the
// caller's body onto the upstream provider's wire format. Everything here is
// a pure function of its inputs so each provider type is testable without
// network access.
package adapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// Adapter captures the per-provider wire differences.
type Adapter interface {
	// BuildURL constructs the upstream target for a logical path. model is
	// the remapped upstream model; stream reports whether the caller asked
	// for a streamed response (some providers use a distinct streaming path).
	BuildURL(ch *domain.Channel, logicalPath, model string, stream bool) string

	// BuildHeaders constructs the upstream headers, including the provider's
	// credential scheme. The caller's own authorization is never forwarded.
	BuildHeaders(ch *domain.Channel, caller http.Header) http.Header
}

// ForType returns the adapter for a channel type. Unknown types behave as
// generic OpenAI-compatible.
func ForType(t domain.ChannelType) Adapter {
	switch t {
	case domain.ChannelTypeAzure:
		return azureAdapter{}
	case domain.ChannelTypeAnthropic:
		return anthropicAdapter{}
	case domain.ChannelTypeGoogle:
		return googleAdapter{}
	default:
		return openAIAdapter{}
	}
}

// UpstreamRequest is the fully adapted call the dispatcher performs.
type UpstreamRequest struct {
	URL     string
	Headers http.Header
	Body    []byte
	Model   string // upstream model after remapping
	Stream  bool
}

// BuildUpstreamRequest applies the channel's model remap table and the
// provider adapter. A body whose model has no remap entry passes through
// byte-for-byte.
func BuildUpstreamRequest(ch *domain.Channel, logicalPath string, body []byte, caller http.Header) (*UpstreamRequest, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, domain.InvalidRequest("request body is not valid JSON")
	}
	model, _ := payload["model"].(string)
	if strings.TrimSpace(model) == "" {
		return nil, domain.InvalidRequest("model is required")
	}
	stream, _ := payload["stream"].(bool)

	upstreamModel := ch.UpstreamModel(model)
	outBody := body
	if upstreamModel != model {
		payload["model"] = upstreamModel
		remapped, err := json.Marshal(payload)
		if err != nil {
			return nil, domain.InvalidRequest("encode request body: %v", err)
		}
		outBody = remapped
	}

	a := ForType(ch.Type)
	return &UpstreamRequest{
		URL:     a.BuildURL(ch, logicalPath, upstreamModel, stream),
		Headers: a.BuildHeaders(ch, caller),
		Body:    outBody,
		Model:   upstreamModel,
		Stream:  stream,
	}, nil
}

// baseHeaders builds the headers every provider shares.
func baseHeaders(caller http.Header) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if enc := caller.Get("Accept-Encoding"); enc != "" {
		h.Set("Accept-Encoding", enc)
	}
	return h
}

func baseURL(ch *domain.Channel) string {
	return strings.TrimRight(ch.BaseURL, "/")
}
