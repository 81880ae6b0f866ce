// Package selector picks an upstream channel for a requested model using
// weighted random choice over the eligible set.
package selector

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cheluen/new-api-workers/internal/cache"
	"github.com/cheluen/new-api-workers/internal/domain"
	"github.com/cheluen/new-api-workers/internal/registry"
)

// DefaultTTL bounds how stale a cached channel list may be relative to
// registry writes.
const DefaultTTL = 60 * time.Second

// Selector resolves the eligible channels for a model (through a short-lived
// cache) and picks one proportionally to channel weight.
type Selector struct {
	registry registry.Registry
	cache    cache.ChannelCache
	ttl      time.Duration

	// randInt is injectable for deterministic tests; it returns a uniform
	// value in [0, n).
	randInt func(n int) int
}

// Option customizes a Selector.
type Option func(*Selector)

// WithTTL overrides the cache entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Selector) { s.ttl = ttl }
}

// WithRand overrides the random source.
func WithRand(randInt func(n int) int) Option {
	return func(s *Selector) { s.randInt = randInt }
}

// New creates a selector over the given registry and cache.
func New(reg registry.Registry, c cache.ChannelCache, opts ...Option) *Selector {
	s := &Selector{
		registry: reg,
		cache:    c,
		ttl:      DefaultTTL,
		randInt:  rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns a channel serving the model. It returns
// domain.ErrNoChannelAvailable when no enabled channel serves the model;
// registry access errors propagate as infrastructure failures.
func (s *Selector) Select(ctx context.Context, model string) (*domain.Channel, error) {
	channels, err := s.eligible(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("resolve channels for %q: %w", model, err)
	}
	if len(channels) == 0 {
		return nil, domain.ErrNoChannelAvailable
	}
	picked := s.pick(channels)
	return &picked, nil
}

func (s *Selector) eligible(ctx context.Context, model string) ([]domain.Channel, error) {
	if cached, ok := s.cache.Get(ctx, model); ok {
		return cached, nil
	}
	channels, err := s.registry.ListEnabledForModel(ctx, model)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, model, channels, s.ttl)
	return channels, nil
}

// pick draws a uniform value in [0, totalWeight) and walks the list
// subtracting weights. A zero-weight channel is never selected while a
// positive-weight alternative exists; when every weight is zero the first
// channel wins deterministically.
func (s *Selector) pick(channels []domain.Channel) domain.Channel {
	total := 0
	for _, ch := range channels {
		if ch.Weight > 0 {
			total += ch.Weight
		}
	}
	if total <= 0 {
		return channels[0]
	}
	draw := s.randInt(total)
	for _, ch := range channels {
		draw -= ch.Weight
		if draw < 0 {
			return ch
		}
	}
	return channels[len(channels)-1]
}
