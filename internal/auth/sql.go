package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cheluen/new-api-workers/internal/domain"
	"github.com/cheluen/new-api-workers/internal/storage"
)

// SQLAuthenticator resolves keys against the tokens table.
type SQLAuthenticator struct {
	db  *storage.DB
	now func() time.Time
}

var _ Authenticator = (*SQLAuthenticator)(nil)

// NewSQL creates an authenticator over the shared database.
func NewSQL(db *storage.DB) *SQLAuthenticator {
	return &SQLAuthenticator{db: db, now: time.Now}
}

type tokenRow struct {
	ID           int64      `db:"id"`
	AccountID    int64      `db:"account_id"`
	Name         string     `db:"name"`
	Status       int        `db:"status"`
	Quota        int64      `db:"quota"`
	UsedQuota    int64      `db:"used_quota"`
	RequestCount int64      `db:"request_count"`
	Models       string     `db:"models"`
	ExpiresAt    *time.Time `db:"expires_at"`
}

// Authenticate validates the key and returns the resolved identity. Unknown,
// disabled, and expired keys all yield ErrInvalidKey; a spent quota yields
// ErrQuotaExhausted.
func (a *SQLAuthenticator) Authenticate(ctx context.Context, apiKey string) (*Identity, error) {
	query := a.db.Dialect.Rebind(`SELECT id, account_id, name, status, quota, used_quota, request_count, models, expires_at
FROM tokens WHERE key_hash = ?`)

	var row tokenRow
	if err := a.db.GetContext(ctx, &row, query, HashKey(apiKey)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("look up key: %w", err)
	}

	token := domain.Token{
		ID:        row.ID,
		AccountID: row.AccountID,
		Name:      row.Name,
		Status:    domain.TokenStatus(row.Status),
		Quota:     row.Quota,
		UsedQuota: row.UsedQuota,
		Models:    row.Models,
		ExpiresAt: row.ExpiresAt,
	}

	if token.Status != domain.TokenStatusEnabled || token.Expired(a.now()) {
		return nil, ErrInvalidKey
	}
	if !token.QuotaRemaining() {
		return nil, ErrQuotaExhausted
	}

	return &Identity{
		TokenID:       token.ID,
		AccountID:     token.AccountID,
		Name:          token.Name,
		AllowedModels: SplitModels(token.Models),
	}, nil
}

// CreateToken inserts a token for the given account and returns its id.
// Administration proper is out of the gateway's scope; this exists so keygen
// and tests can provision keys.
func (a *SQLAuthenticator) CreateToken(ctx context.Context, token *domain.Token) (int64, error) {
	// RETURNING works on both backends and sidesteps drivers that do not
	// implement LastInsertId.
	query := a.db.Dialect.Rebind(`INSERT INTO tokens
(account_id, name, key_hash, status, quota, used_quota, request_count, models, expires_at, created_at)
VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?, ?) RETURNING id`)

	var id int64
	if err := a.db.GetContext(ctx, &id, query,
		token.AccountID, token.Name, token.KeyHash, int(token.Status),
		token.Quota, token.Models, token.ExpiresAt, a.now().UTC()); err != nil {
		return 0, fmt.Errorf("create token: %w", err)
	}
	return id, nil
}
