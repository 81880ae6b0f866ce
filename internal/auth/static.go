package auth

import "context"

// Static resolves keys from a fixed in-memory table, keyed by key hash.
// Used in tests and by deployments without a token database.
type Static struct {
	identities map[string]Identity
}

var _ Authenticator = (*Static)(nil)

// NewStatic creates an empty static authenticator.
func NewStatic() *Static {
	return &Static{identities: make(map[string]Identity)}
}

// Add registers a raw key with its identity.
func (s *Static) Add(apiKey string, id Identity) {
	s.identities[HashKey(apiKey)] = id
}

func (s *Static) Authenticate(_ context.Context, apiKey string) (*Identity, error) {
	id, ok := s.identities[HashKey(apiKey)]
	if !ok {
		return nil, ErrInvalidKey
	}
	cp := id
	return &cp, nil
}
