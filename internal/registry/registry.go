// Package registry provides read access to the configured upstream channels.
// Channel records are written by administration; the relay engine only lists
// and resolves them.
package registry

import (
	"context"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// Registry is the engine's view of the channel table.
type Registry interface {
	// ListEnabledForModel returns the enabled channels whose allow-list
	// admits the given model.
	ListEnabledForModel(ctx context.Context, model string) ([]domain.Channel, error)

	// ListEnabled returns every enabled channel.
	ListEnabled(ctx context.Context) ([]domain.Channel, error)

	// GetByID returns a channel by id, or nil when absent.
	GetByID(ctx context.Context, id int64) (*domain.Channel, error)
}
