package ports

import (
	"context"
	"time"

	"github.com/selectexposure/authcore/internal/core/domain"
)

// ResetNonceRepository is the persisted nonce table behind password resets.
type ResetNonceRepository interface {
	// Issue stores nonce and removes any earlier nonce of the same identity,
	// atomically.
	Issue(ctx context.Context, nonce *domain.ResetNonce) error

	// ConsumeAndSetCredential deletes the nonce and replaces the identity's
	// credential in one transaction. It returns domain.ErrInvalidToken when the
	// nonce is absent, bound to another identity, or expired at now. Of two
	// concurrent calls with the same nonce at most one succeeds.
	ConsumeAndSetCredential(ctx context.Context, nonceHash, identityID string, credentialHash []byte, now time.Time) error

	// DeleteExpired removes nonces that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
