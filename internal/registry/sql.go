package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cheluen/new-api-workers/internal/domain"
	"github.com/cheluen/new-api-workers/internal/storage"
)

// SQLRegistry reads channels from the gateway database.
type SQLRegistry struct {
	db *storage.DB
}

var _ Registry = (*SQLRegistry)(nil)

// NewSQL creates a registry backed by the shared database.
func NewSQL(db *storage.DB) *SQLRegistry {
	return &SQLRegistry{db: db}
}

type channelRow struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Type     string `db:"type"`
	APIKey   string `db:"api_key"`
	BaseURL  string `db:"base_url"`
	Models   string `db:"models"`
	ModelMap string `db:"model_map"`
	Status   int    `db:"status"`
	Priority int    `db:"priority"`
	Weight   int    `db:"weight"`
}

func (r channelRow) toDomain() (domain.Channel, error) {
	ch := domain.Channel{
		ID:       r.ID,
		Name:     r.Name,
		Type:     domain.ChannelType(r.Type),
		Key:      r.APIKey,
		BaseURL:  r.BaseURL,
		Models:   r.Models,
		Status:   domain.ChannelStatus(r.Status),
		Priority: r.Priority,
		Weight:   r.Weight,
	}
	if r.ModelMap != "" {
		if err := json.Unmarshal([]byte(r.ModelMap), &ch.ModelMap); err != nil {
			return ch, fmt.Errorf("channel %d: decode model_map: %w", r.ID, err)
		}
	}
	return ch, nil
}

const channelColumns = `id, name, type, api_key, base_url, models, model_map, status, priority, weight`

func (s *SQLRegistry) ListEnabled(ctx context.Context) ([]domain.Channel, error) {
	query := s.db.Dialect.Rebind(
		`SELECT ` + channelColumns + ` FROM channels WHERE status = ? ORDER BY priority DESC, id`)

	var rows []channelRow
	if err := s.db.SelectContext(ctx, &rows, query, int(domain.ChannelStatusEnabled)); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	channels := make([]domain.Channel, 0, len(rows))
	for _, row := range rows {
		ch, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// ListEnabledForModel filters the allow-list in Go; the comma-delimited
// models column has no portable SQL match.
func (s *SQLRegistry) ListEnabledForModel(ctx context.Context, model string) ([]domain.Channel, error) {
	enabled, err := s.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	var eligible []domain.Channel
	for _, ch := range enabled {
		if ch.ServesModel(model) {
			eligible = append(eligible, ch)
		}
	}
	return eligible, nil
}

func (s *SQLRegistry) GetByID(ctx context.Context, id int64) (*domain.Channel, error) {
	query := s.db.Dialect.Rebind(
		`SELECT ` + channelColumns + ` FROM channels WHERE id = ?`)

	var row channelRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel %d: %w", id, err)
	}
	ch, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// Upsert creates or updates a channel keyed by name. Used to seed channels
// declared in the config file at boot.
func (s *SQLRegistry) Upsert(ctx context.Context, ch domain.Channel) error {
	modelMap := ""
	if len(ch.ModelMap) > 0 {
		raw, err := json.Marshal(ch.ModelMap)
		if err != nil {
			return fmt.Errorf("encode model_map: %w", err)
		}
		modelMap = string(raw)
	}

	upsert := s.db.Dialect.UpsertClause("name", []string{
		"type", "api_key", "base_url", "models", "model_map", "status", "priority", "weight", "updated_at",
	})
	query := s.db.Dialect.Rebind(`INSERT INTO channels
(name, type, api_key, base_url, models, model_map, status, priority, weight, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ` + upsert)

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, query,
		ch.Name, string(ch.Type), ch.Key, ch.BaseURL, ch.Models, modelMap,
		int(ch.Status), ch.Priority, ch.Weight, now, now)
	if err != nil {
		return fmt.Errorf("upsert channel %q: %w", ch.Name, err)
	}
	return nil
}
