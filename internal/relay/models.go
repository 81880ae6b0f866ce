package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

var modelsCreated = time.Now().Unix()

type modelCard struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// HandleModels serves GET /v1/models: the distinct model identifiers
// advertised across all enabled channels.
func (e *Engine) HandleModels(w http.ResponseWriter, r *http.Request) {
	channels, err := e.registry.ListEnabled(r.Context())
	if err != nil {
		e.logger.Error("model listing failed", slog.String("error", err.Error()))
		WriteError(w, err)
		return
	}

	seen := make(map[string]modelCard)
	for _, ch := range channels {
		for _, m := range ch.ModelList() {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = modelCard{
				ID:      m,
				Object:  "model",
				Created: modelsCreated,
				OwnedBy: string(ch.Type),
			}
		}
	}

	cards := make([]modelCard, 0, len(seen))
	for _, card := range seen {
		cards = append(cards, card)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   cards,
	})
}
