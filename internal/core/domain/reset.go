package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ResetNonce is the server-side record of an issued reset token. Only the
// SHA-256 of the nonce is stored so a leaked table cannot be replayed.
type ResetNonce struct {
	NonceHash  string
	IdentityID string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// IsExpired reports whether the nonce is no longer consumable at now.
func (n *ResetNonce) IsExpired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}

// HashNonce returns the hex SHA-256 digest used as the nonce table key.
func HashNonce(nonce string) string {
	sum := sha256.Sum256([]byte(nonce))
	return hex.EncodeToString(sum[:])
}
