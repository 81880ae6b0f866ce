package adapter

import (
	"net/http"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// openAIAdapter serves generic OpenAI-compatible upstreams and custom base
// URLs: logical paths map verbatim onto the base URL, credentials travel as a
// bearer token.
type openAIAdapter struct{}

func (openAIAdapter) BuildURL(ch *domain.Channel, logicalPath, _ string, _ bool) string {
	return baseURL(ch) + logicalPath
}

func (openAIAdapter) BuildHeaders(ch *domain.Channel, caller http.Header) http.Header {
	h := baseHeaders(caller)
	h.Set("Authorization", "Bearer "+ch.Key)
	return h
}
