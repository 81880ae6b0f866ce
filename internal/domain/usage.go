package domain

import "time"

// Usage holds the token counts extracted from an upstream response.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Total returns the combined token count.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// UsageRecord is the immutable fact appended once per request that reached
// dispatch.
type UsageRecord struct {
	ID               int64
	AccountID        int64
	TokenID          int64
	ChannelID        int64
	Model            string
	PromptTokens     int
	CompletionTokens int
	Quota            int64
	CorrelationID    string
	StatusCode       int
	CreatedAt        time.Time
}
