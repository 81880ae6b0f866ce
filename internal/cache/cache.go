// Package cache provides the short-lived channel-list cache used by the
// selector. Entries tolerate staleness up to their TTL; there is no explicit
// invalidation hook.
package cache

import (
	"context"
	"time"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// ChannelCache maps a model name to the list of channels eligible for it.
type ChannelCache interface {
	Get(ctx context.Context, model string) ([]domain.Channel, bool)
	Set(ctx context.Context, model string, channels []domain.Channel, ttl time.Duration)
}
