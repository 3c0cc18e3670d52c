package ports

import (
	"context"
	"time"

	"github.com/selectexposure/authcore/internal/core/domain"
)

// PasswordHasher hashes and verifies credentials. Implementations may run the
// work on a bounded worker pool, so both calls honour ctx.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) ([]byte, error)
	Verify(ctx context.Context, plaintext string, hash []byte) (bool, error)
}

// TokenIssuer mints signed, time-bounded tokens. The returned time is the
// expiry embedded in the token.
type TokenIssuer interface {
	Issue(claims domain.Claims, kind domain.TokenKind, ttl time.Duration) (string, time.Time, error)
}

// TokenVerifier validates a signed token and checks its kind. Errors are one
// of domain.ErrTokenInvalid, ErrTokenExpired, ErrTokenNotYetValid or
// ErrTokenWrongKind. Verification is pure and safe for concurrent use.
type TokenVerifier interface {
	Verify(token string, kind domain.TokenKind) (domain.Claims, error)
}

// TokenService is both sides of the token issuer.
type TokenService interface {
	TokenIssuer
	TokenVerifier
}
