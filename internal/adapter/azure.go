package adapter

import (
	"net/http"
	"strings"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// azureAPIVersion is the api-version query parameter sent to Azure OpenAI
// deployments.
const azureAPIVersion = "2024-02-15-preview"

// azureAdapter speaks the Azure OpenAI dialect: the model names a deployment
// in the path, the credential travels in an api-key header, and every call
// carries an api-version query parameter.
type azureAdapter struct{}

func (azureAdapter) BuildURL(ch *domain.Channel, logicalPath, model string, _ bool) string {
	// /v1/chat/completions -> /openai/deployments/{model}/chat/completions
	suffix := strings.TrimPrefix(logicalPath, "/v1")
	return baseURL(ch) + "/openai/deployments/" + model + suffix + "?api-version=" + azureAPIVersion
}

func (azureAdapter) BuildHeaders(ch *domain.Channel, caller http.Header) http.Header {
	h := baseHeaders(caller)
	h.Set("api-key", ch.Key)
	return h
}
