// Package ledger appends usage records and debits prepaid quota. Debits are
// additive, non-transactional counter updates; they are deliberately not
// synchronized with the admission check, so tokens near their cap can
// overdraw by the cost of requests in flight. That bounded overdraft is
// policy, not a bug.
package ledger

import (
	"context"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// Ledger is the durable side of usage accounting.
type Ledger interface {
	// RecordUsage appends one immutable usage record.
	RecordUsage(ctx context.Context, rec *domain.UsageRecord) error

	// DebitToken adds quota to the token's used counter and bumps its
	// request count.
	DebitToken(ctx context.Context, tokenID, quota int64) error

	// DebitAccount adds quota to the account's used counter and bumps its
	// request count.
	DebitAccount(ctx context.Context, accountID, quota int64) error
}
