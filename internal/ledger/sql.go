package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/cheluen/new-api-workers/internal/domain"
	"github.com/cheluen/new-api-workers/internal/storage"
)

// SQLLedger writes usage facts and quota counters to the gateway database.
type SQLLedger struct {
	db *storage.DB
}

var _ Ledger = (*SQLLedger)(nil)

// NewSQL creates a ledger backed by the shared database.
func NewSQL(db *storage.DB) *SQLLedger {
	return &SQLLedger{db: db}
}

func (l *SQLLedger) RecordUsage(ctx context.Context, rec *domain.UsageRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query := l.db.Dialect.Rebind(`INSERT INTO usage_logs
(account_id, token_id, channel_id, model, prompt_tokens, completion_tokens, quota, correlation_id, status_code, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := l.db.ExecContext(ctx, query,
		rec.AccountID, rec.TokenID, rec.ChannelID, rec.Model,
		rec.PromptTokens, rec.CompletionTokens, rec.Quota,
		rec.CorrelationID, rec.StatusCode, createdAt)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (l *SQLLedger) DebitToken(ctx context.Context, tokenID, quota int64) error {
	query := l.db.Dialect.Rebind(
		`UPDATE tokens SET used_quota = used_quota + ?, request_count = request_count + 1 WHERE id = ?`)
	if _, err := l.db.ExecContext(ctx, query, quota, tokenID); err != nil {
		return fmt.Errorf("debit token %d: %w", tokenID, err)
	}
	return nil
}

func (l *SQLLedger) DebitAccount(ctx context.Context, accountID, quota int64) error {
	query := l.db.Dialect.Rebind(
		`UPDATE accounts SET used_quota = used_quota + ?, request_count = request_count + 1 WHERE id = ?`)
	if _, err := l.db.ExecContext(ctx, query, quota, accountID); err != nil {
		return fmt.Errorf("debit account %d: %w", accountID, err)
	}
	return nil
}
