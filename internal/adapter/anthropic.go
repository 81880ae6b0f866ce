package adapter

import (
	"net/http"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// anthropicVersion is the required anthropic-version header value.
const anthropicVersion = "2023-06-01"

// anthropicAdapter speaks the Anthropic Messages API: chat completions map
// onto the distinct /v1/messages endpoint and the credential travels in an
// x-api-key header.
type anthropicAdapter struct{}

func (anthropicAdapter) BuildURL(ch *domain.Channel, logicalPath, _ string, _ bool) string {
	if logicalPath == "/v1/chat/completions" {
		return baseURL(ch) + "/v1/messages"
	}
	return baseURL(ch) + logicalPath
}

func (anthropicAdapter) BuildHeaders(ch *domain.Channel, caller http.Header) http.Header {
	h := baseHeaders(caller)
	h.Set("x-api-key", ch.Key)
	h.Set("anthropic-version", anthropicVersion)
	return h
}
