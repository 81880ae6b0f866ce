// Package tokens estimates prompt token counts for requests whose upstream
// response omits usage figures. Estimation is opt-in; by default the meter
// bills zero when usage is absent.
package tokens

import (
	"encoding/json"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

// charsPerToken is the heuristic used when no encoding is available for the
// model.
const charsPerToken = 4

// Estimator counts tokens with tiktoken where the model's encoding is known
// and falls back to a character heuristic otherwise.
type Estimator struct {
	mu     sync.RWMutex
	codecs map[tokenizer.Encoding]tokenizer.Codec
}

// NewEstimator creates an estimator with an empty codec cache.
func NewEstimator() *Estimator {
	return &Estimator{codecs: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

// CountText counts the tokens of text for the given model.
func (e *Estimator) CountText(model, text string) int {
	if text == "" {
		return 0
	}
	codec, err := e.codec(model)
	if err != nil {
		return heuristicCount(text)
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return heuristicCount(text)
	}
	return len(ids)
}

func (e *Estimator) codec(model string) (tokenizer.Codec, error) {
	if codec, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
		return codec, nil
	}

	encoding := modelEncoding(model)
	e.mu.RLock()
	cached, ok := e.codecs[encoding]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.codecs[encoding] = codec
	e.mu.Unlock()
	return codec, nil
}

// modelEncoding maps a model name onto a tokenizer encoding. Newer OpenAI
// families use o200k_base; gpt-4, gpt-3.5 and the embedding models use
// cl100k_base.
func modelEncoding(model string) tokenizer.Encoding {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gpt-4o"),
		strings.HasPrefix(model, "gpt-4.1"),
		strings.HasPrefix(model, "gpt-5"),
		strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"),
		strings.HasPrefix(model, "o4"):
		return tokenizer.O200kBase
	case strings.HasPrefix(model, "gpt-4"),
		strings.HasPrefix(model, "gpt-3.5"),
		strings.HasPrefix(model, "text-embedding"):
		return tokenizer.Cl100kBase
	default:
		return tokenizer.O200kBase
	}
}

func heuristicCount(text string) int {
	runes := utf8.RuneCountInString(text)
	return (runes + charsPerToken - 1) / charsPerToken
}

// EstimatePrompt estimates the prompt token count of an OpenAI-shaped chat
// or embeddings request body.
func (e *Estimator) EstimatePrompt(model string, body []byte) int {
	var payload struct {
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
		Input json.RawMessage `json:"input"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0
	}

	total := 0
	for _, msg := range payload.Messages {
		// Per-message framing overhead plus the role token, per OpenAI's
		// chat token accounting.
		total += 4
		total += e.countContent(model, msg.Content)
	}
	if len(payload.Messages) > 0 {
		total += 3 // assistant priming
	}
	if len(payload.Input) > 0 {
		total += e.countContent(model, payload.Input)
	}
	return total
}

// countContent handles both string content and the list-of-parts form, as
// well as embeddings input arrays.
func (e *Estimator) countContent(model string, raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return e.CountText(model, text)
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return 0
	}
	total := 0
	for _, part := range parts {
		var s string
		if err := json.Unmarshal(part, &s); err == nil {
			total += e.CountText(model, s)
			continue
		}
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(part, &obj); err == nil {
			total += e.CountText(model, obj.Text)
		}
	}
	return total
}
