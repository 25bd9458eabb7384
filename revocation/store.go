package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrEmptyToken is returned when Revoke is called without a token.
	ErrEmptyToken = errors.New("token required")
	// ErrBackend wraps failures of a shared store.
	ErrBackend = errors.New("revocation store backend unavailable")
)

// Store is the token denylist. Entries are keyed by the SHA-256 digest of the raw token
// and live until the token's own expiry. Implementations must be safe for concurrent
// use and make a revoke visible to the very next lookup.
type Store interface {
	// Revoke marks token as revoked until expiresAt. Revoking twice is not an error.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	// IsRevoked reports whether token was revoked. An empty token is never revoked.
	IsRevoked(ctx context.Context, token string) (bool, error)
	// Consume revokes token and reports whether this call was the one that revoked it.
	// Concurrent callers presenting the same token see exactly one true.
	Consume(ctx context.Context, token string, expiresAt time.Time) (bool, error)
	Clear(ctx context.Context) error
}

// Digest returns the hex SHA-256 of token. Stores never keep the raw token.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
