package adapter

import (
	"net/http"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// googleAdapter speaks the Gemini API: the model names a resource in the
// path, streaming uses a distinct method with SSE framing, and the credential
// travels in an x-goog-api-key header.
type googleAdapter struct{}

func (googleAdapter) BuildURL(ch *domain.Channel, logicalPath, model string, stream bool) string {
	switch logicalPath {
	case "/v1/chat/completions":
		method := ":generateContent"
		if stream {
			method = ":streamGenerateContent?alt=sse"
		}
		return baseURL(ch) + "/v1beta/models/" + model + method
	case "/v1/embeddings":
		return baseURL(ch) + "/v1beta/models/" + model + ":embedContent"
	default:
		return baseURL(ch) + logicalPath
	}
}

func (googleAdapter) BuildHeaders(ch *domain.Channel, caller http.Header) http.Header {
	h := baseHeaders(caller)
	h.Set("x-goog-api-key", ch.Key)
	return h
}
