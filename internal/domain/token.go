package domain

import (
	"strings"
	"time"
)

// TokenStatus is the administrative state of an API key.
type TokenStatus int

const (
	TokenStatusDisabled TokenStatus = iota
	TokenStatusEnabled
	TokenStatusExpired
)

// Token is an API key record. The relay engine consumes it read-only; only
// the quota ledger's debit operation mutates the counters.
type Token struct {
	ID           int64
	AccountID    int64
	Name         string
	KeyHash      string
	Status       TokenStatus
	Quota        int64 // prepaid cap, 0 = unlimited
	UsedQuota    int64
	RequestCount int64
	Models       string // comma-delimited allow-list, empty admits every model
	ExpiresAt    *time.Time
}

// AllowsModel reports whether the token's allow-list admits model.
func (t *Token) AllowsModel(model string) bool {
	if strings.TrimSpace(t.Models) == "" {
		return true
	}
	for _, m := range strings.Split(t.Models, ",") {
		m = strings.TrimSpace(m)
		if m == "*" || m == model {
			return true
		}
	}
	return false
}

// Expired reports whether the token is past its expiry at now.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// QuotaRemaining reports whether the token still has prepaid quota. A zero
// cap means unlimited.
func (t *Token) QuotaRemaining() bool {
	return t.Quota == 0 || t.UsedQuota < t.Quota
}
