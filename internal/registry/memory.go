package registry

import (
	"context"
	"sync"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// Memory is an in-process Registry, used in tests and by deployments that
// declare all channels in the config file without a database.
type Memory struct {
	mu       sync.RWMutex
	channels []domain.Channel
}

var _ Registry = (*Memory)(nil)

// NewMemory creates a registry holding the given channels.
func NewMemory(channels ...domain.Channel) *Memory {
	return &Memory{channels: channels}
}

// Replace swaps the channel set.
func (m *Memory) Replace(channels []domain.Channel) {
	m.mu.Lock()
	m.channels = append([]domain.Channel(nil), channels...)
	m.mu.Unlock()
}

func (m *Memory) ListEnabled(_ context.Context) ([]domain.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Channel
	for _, ch := range m.channels {
		if ch.Status == domain.ChannelStatusEnabled {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (m *Memory) ListEnabledForModel(ctx context.Context, model string) ([]domain.Channel, error) {
	enabled, err := m.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Channel
	for _, ch := range enabled {
		if ch.ServesModel(model) {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (m *Memory) GetByID(_ context.Context, id int64) (*domain.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.channels {
		if ch.ID == id {
			cp := ch
			return &cp, nil
		}
	}
	return nil, nil
}
