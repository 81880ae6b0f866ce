package ledger

import (
	"context"
	"sync"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// Memory is an in-process ledger used in tests.
type Memory struct {
	mu       sync.Mutex
	records  []domain.UsageRecord
	tokens   map[int64]int64
	accounts map[int64]int64
}

var _ Ledger = (*Memory)(nil)

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		tokens:   make(map[int64]int64),
		accounts: make(map[int64]int64),
	}
}

func (m *Memory) RecordUsage(_ context.Context, rec *domain.UsageRecord) error {
	m.mu.Lock()
	m.records = append(m.records, *rec)
	m.mu.Unlock()
	return nil
}

func (m *Memory) DebitToken(_ context.Context, tokenID, quota int64) error {
	m.mu.Lock()
	m.tokens[tokenID] += quota
	m.mu.Unlock()
	return nil
}

func (m *Memory) DebitAccount(_ context.Context, accountID, quota int64) error {
	m.mu.Lock()
	m.accounts[accountID] += quota
	m.mu.Unlock()
	return nil
}

// Records returns a copy of the appended usage records.
func (m *Memory) Records() []domain.UsageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.UsageRecord(nil), m.records...)
}

// TokenDebits returns the total quota debited for a token.
func (m *Memory) TokenDebits(tokenID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[tokenID]
}

// AccountDebits returns the total quota debited for an account.
func (m *Memory) AccountDebits(accountID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[accountID]
}
