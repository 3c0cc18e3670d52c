package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/selectexposure/authcore/internal/api/metrics"
	"github.com/selectexposure/authcore/internal/core/domain"
	"github.com/selectexposure/authcore/internal/core/ports"
)

const defaultResetTTL = 15 * time.Minute

// ResetDeps are the collaborators of the reset handshake.
type ResetDeps struct {
	Identities ports.IdentityRepository
	Nonces     ports.ResetNonceRepository
	Hasher     ports.PasswordHasher
	Tokens     ports.TokenService
	Notifier   ports.ResetNotifier
	Audit      ports.AuditRecorder
}

// ResetService coordinates the password reset handshake. A nonce moves from
// issued to consumed or expired; issuing a new one supersedes the old.
type ResetService struct {
	deps ResetDeps
	ttl  time.Duration
	now  func() time.Time
	log  zerolog.Logger
}

func NewResetService(deps ResetDeps, ttl time.Duration, log zerolog.Logger, opts ...Option) *ResetService {
	if ttl <= 0 {
		ttl = defaultResetTTL
	}
	if deps.Audit == nil {
		deps.Audit = nopAudit{}
	}
	o := applyOptions(opts)
	return &ResetService{deps: deps, ttl: ttl, now: o.now, log: log}
}

// RequestReset issues a reset token for email when such an identity exists.
// It never reports whether it does; internal failures are logged only.
func (s *ResetService) RequestReset(ctx context.Context, email string) {
	email = domain.NormalizeEmail(email)

	identity, err := s.deps.Identities.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		metrics.ResetsTotal.WithLabelValues("requested", "unknown_email").Inc()
		s.log.Debug().Msg("reset requested for unknown email")
		return
	}
	if err != nil {
		s.fail(err, "lookup identity")
		return
	}
	if !identity.IsActive {
		metrics.ResetsTotal.WithLabelValues("requested", "unknown_email").Inc()
		s.log.Debug().Err(domain.ErrInactiveIdentity).Str("identity_id", identity.ID).Msg("reset requested for inactive identity")
		return
	}

	now := s.now().UTC()
	nonce := rand.Text()

	token, expiresAt, err := s.deps.Tokens.Issue(domain.Claims{
		IdentityID: identity.ID,
		Kind:       domain.TokenReset,
		Purpose:    domain.PurposeReset,
		Nonce:      nonce,
	}, domain.TokenReset, s.ttl)
	if err != nil {
		s.fail(err, "issue reset token")
		return
	}

	err = s.deps.Nonces.Issue(ctx, &domain.ResetNonce{
		NonceHash:  domain.HashNonce(nonce),
		IdentityID: identity.ID,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
	})
	if err != nil {
		s.fail(err, "persist reset nonce")
		return
	}

	if err := s.deps.Notifier.SendResetToken(ctx, identity, token, expiresAt); err != nil {
		s.fail(err, "deliver reset token")
		return
	}

	metrics.ResetsTotal.WithLabelValues("requested", "ok").Inc()
	record(ctx, s.deps.Audit, s.log, &domain.AuthEvent{
		Type:       domain.EventResetRequested,
		IdentityID: identity.ID,
		OccurredAt: now,
	})
	s.log.Info().Str("identity_id", identity.ID).Msg("password reset issued")
}

// ConfirmReset consumes the token's nonce and replaces the credential. The
// caller has already validated newPlaintext.
func (s *ResetService) ConfirmReset(ctx context.Context, token, newPlaintext string) error {
	claims, err := s.deps.Tokens.Verify(token, domain.TokenReset)
	if err != nil {
		return s.reject(ctx, "", err)
	}

	hash, err := s.deps.Hasher.Hash(ctx, newPlaintext)
	if err != nil {
		metrics.ResetsTotal.WithLabelValues("confirmed", "error").Inc()
		return fmt.Errorf("confirm reset: hash: %w", err)
	}

	now := s.now().UTC()
	err = s.deps.Nonces.ConsumeAndSetCredential(ctx, domain.HashNonce(claims.Nonce), claims.IdentityID, hash, now)
	if errors.Is(err, domain.ErrInvalidToken) {
		return s.reject(ctx, claims.IdentityID, err)
	}
	if err != nil {
		metrics.ResetsTotal.WithLabelValues("confirmed", "error").Inc()
		return fmt.Errorf("confirm reset: %w", err)
	}

	metrics.ResetsTotal.WithLabelValues("confirmed", "ok").Inc()
	record(ctx, s.deps.Audit, s.log, &domain.AuthEvent{
		Type:       domain.EventResetConfirmed,
		IdentityID: claims.IdentityID,
		OccurredAt: now,
	})
	s.log.Info().Str("identity_id", claims.IdentityID).Msg("password reset confirmed")
	return nil
}

// PurgeExpired deletes nonces that expired at or before now.
func (s *ResetService) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.deps.Nonces.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired nonces: %w", err)
	}
	metrics.ResetNoncesPurgedTotal.Add(float64(n))
	return n, nil
}

// RunReaper calls PurgeExpired every interval until ctx is cancelled.
func (s *ResetService) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx, s.now().UTC())
			if err != nil {
				s.log.Error().Err(err).Msg("reset nonce purge failed")
				continue
			}
			if n > 0 {
				s.log.Info().Int64("purged", n).Msg("expired reset nonces purged")
			}
		}
	}
}

func (s *ResetService) reject(ctx context.Context, identityID string, reason error) error {
	metrics.ResetsTotal.WithLabelValues("confirmed", "rejected").Inc()
	record(ctx, s.deps.Audit, s.log, &domain.AuthEvent{
		Type:       domain.EventResetRejected,
		IdentityID: identityID,
		Detail:     map[string]string{"reason": reason.Error()},
		OccurredAt: s.now().UTC(),
	})
	s.log.Debug().Err(reason).Msg("reset token rejected")
	return domain.ErrInvalidToken
}

func (s *ResetService) fail(err error, step string) {
	metrics.ResetsTotal.WithLabelValues("requested", "error").Inc()
	s.log.Error().Err(err).Str("step", step).Msg("password reset request failed")
}
