package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/selectexposure/authcore/internal/core/domain"
	"github.com/selectexposure/authcore/internal/core/ports"
)

// ResetNonceRepository implements ports.ResetNonceRepository using PostgreSQL.
type ResetNonceRepository struct {
	db DB
}

// NewResetNonceRepository creates a new ResetNonceRepository.
func NewResetNonceRepository(db DB) *ResetNonceRepository {
	return &ResetNonceRepository{db: db}
}

// Issue replaces the outstanding nonce of the identity with nonce. The upsert
// on the identity_id key keeps concurrent requests to a single live nonce.
func (r *ResetNonceRepository) Issue(ctx context.Context, nonce *domain.ResetNonce) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO reset_nonces (identity_id, nonce_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity_id) DO UPDATE
		SET nonce_hash = EXCLUDED.nonce_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
	`, nonce.IdentityID, nonce.NonceHash, nonce.ExpiresAt, nonce.CreatedAt)
	if err != nil {
		return oops.Code("RESET_ISSUE_FAILED").
			With("operation", "supersede reset nonce").
			With("identity_id", nonce.IdentityID).
			Wrap(err)
	}
	return nil
}

// ConsumeAndSetCredential deletes the nonce and writes the new credential in
// the same transaction. The row lock taken by DELETE serialises concurrent
// confirmations; the loser sees no row and gets domain.ErrInvalidToken.
func (r *ResetNonceRepository) ConsumeAndSetCredential(ctx context.Context, nonceHash, identityID string, credentialHash []byte, now time.Time) error {
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var consumed string
		err := tx.QueryRow(ctx, `
			DELETE FROM reset_nonces
			WHERE nonce_hash = $1 AND identity_id = $2 AND expires_at > $3
			RETURNING identity_id::text
		`, nonceHash, identityID, now).Scan(&consumed)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrInvalidToken
		}
		if err != nil {
			return err
		}
		return updateCredential(ctx, tx, consumed, credentialHash, now)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrIdentityNotFound):
		return oops.Code("RESET_NONCE_REJECTED").
			With("identity_id", identityID).
			Wrap(domain.ErrInvalidToken)
	default:
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "consume reset nonce").
			With("identity_id", identityID).
			Wrap(err)
	}
}

// DeleteExpired removes all nonces expired at now and returns the count.
func (r *ResetNonceRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM reset_nonces WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired reset nonces").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ ports.ResetNonceRepository = (*ResetNonceRepository)(nil)
