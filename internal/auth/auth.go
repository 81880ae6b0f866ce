// Package auth validates opaque API keys and produces the request context
// the relay engine consumes. The engine never sees the key itself, only the
// resolved identity.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// Identity is the resolved request context: an enabled, non-expired,
// quota-available token at the instant of admission.
type Identity struct {
	TokenID       int64
	AccountID     int64
	Name          string
	AllowedModels []string // empty admits every model
}

// AllowsModel reports whether the identity's allow-list admits model.
func (id *Identity) AllowsModel(model string) bool {
	if len(id.AllowedModels) == 0 {
		return true
	}
	for _, m := range id.AllowedModels {
		if m == "*" || m == model {
			return true
		}
	}
	return false
}

// Authenticator resolves an API key to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*Identity, error)
}

var (
	// ErrInvalidKey covers unknown, disabled, and expired keys alike; the
	// caller learns nothing beyond the key not working.
	ErrInvalidKey = &domain.RelayError{
		Code:    "invalid_api_key",
		Message: "invalid API key",
		Status:  http.StatusUnauthorized,
	}

	// ErrQuotaExhausted rejects a key whose prepaid quota is spent.
	ErrQuotaExhausted = &domain.RelayError{
		Code:    "insufficient_quota",
		Message: "the key's quota has been exhausted",
		Status:  http.StatusTooManyRequests,
	}
)

// ExtractKey pulls the API key out of the Authorization header.
func ExtractKey(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// HashKey creates the SHA-256 hash under which a key is stored.
func HashKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}

// GenerateKey mints a fresh sk- prefixed API key.
func GenerateKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return "sk-" + hex.EncodeToString(raw), nil
}

// SplitModels parses a comma-delimited allow-list into its entries.
func SplitModels(models string) []string {
	var out []string
	for _, m := range strings.Split(models, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}
