// Package meter extracts token usage from upstream responses and computes
// the billed quota. Usage accounting degrades gracefully: a response without
// a parseable usage object bills zero rather than failing the request.
package meter

import (
	"encoding/json"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// DefaultCompletionRatio weights completion tokens against prompt tokens.
// Completion tokens cost more because they are generated.
const DefaultCompletionRatio = 3

// Meter computes billed quota from extracted usage.
type Meter struct {
	ratio int
}

// New creates a meter with the given completion ratio. A ratio below one
// falls back to the default.
func New(completionRatio int) *Meter {
	if completionRatio < 1 {
		completionRatio = DefaultCompletionRatio
	}
	return &Meter{ratio: completionRatio}
}

// Billed returns promptTokens + completionTokens * ratio.
func (m *Meter) Billed(u domain.Usage) int64 {
	return int64(u.PromptTokens) + int64(u.CompletionTokens)*int64(m.ratio)
}

// ParseUsage reads the usage object from a buffered JSON response body.
// Absence or a parse failure yields zero counts.
func ParseUsage(body []byte) domain.Usage {
	if len(body) == 0 {
		return domain.Usage{}
	}
	var payload struct {
		Usage json.RawMessage `json:"usage"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Usage) == 0 {
		return domain.Usage{}
	}
	u, _ := parseUsageObject(payload.Usage)
	return u
}

// parseUsageObject decodes a usage object, accepting both the OpenAI field
// names and the input/output variants other providers emit.
func parseUsageObject(raw json.RawMessage) (domain.Usage, bool) {
	var fields struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		InputTokens      int `json:"input_tokens"`
		OutputTokens     int `json:"output_tokens"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.Usage{}, false
	}
	u := domain.Usage{
		PromptTokens:     fields.PromptTokens,
		CompletionTokens: fields.CompletionTokens,
	}
	if u.PromptTokens == 0 && u.CompletionTokens == 0 {
		u.PromptTokens = fields.InputTokens
		u.CompletionTokens = fields.OutputTokens
	}
	if u.PromptTokens == 0 && u.CompletionTokens == 0 {
		return domain.Usage{}, false
	}
	return u, true
}
