package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// Redis is a ChannelCache backed by a shared Redis instance, for deployments
// running more than one gateway process. Cache errors degrade to a miss so
// that Redis outages never fail a relay.
type Redis struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedis connects to the given Redis URL and verifies the connection.
func NewRedis(ctx context.Context, redisURL string, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client, prefix: "channels:", logger: logger}, nil
}

func (r *Redis) Get(ctx context.Context, model string) ([]domain.Channel, bool) {
	raw, err := r.client.Get(ctx, r.prefix+model).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("channel cache read failed", slog.String("model", model), slog.String("error", err.Error()))
		}
		return nil, false
	}
	var channels []domain.Channel
	if err := json.Unmarshal(raw, &channels); err != nil {
		r.logger.Warn("channel cache entry corrupt", slog.String("model", model), slog.String("error", err.Error()))
		return nil, false
	}
	return channels, true
}

func (r *Redis) Set(ctx context.Context, model string, channels []domain.Channel, ttl time.Duration) {
	raw, err := json.Marshal(channels)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.prefix+model, raw, ttl).Err(); err != nil {
		r.logger.Warn("channel cache write failed", slog.String("model", model), slog.String("error", err.Error()))
	}
}

// Close releases the underlying Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
