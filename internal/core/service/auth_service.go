package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/selectexposure/authcore/internal/api/metrics"
	"github.com/selectexposure/authcore/internal/core/domain"
	"github.com/selectexposure/authcore/internal/core/ports"
	"github.com/selectexposure/authcore/internal/core/validation"
)

const (
	defaultAccessTTL        = 15 * time.Minute
	defaultRefreshTTL       = 7 * 24 * time.Hour
	defaultMaxLoginFailures = 10

	// verified against when the email is unknown
	timingPlaceholder = "placeholder-credential"
)

// AuthDeps are the collaborators of the facade. Throttle and Audit may be nil.
type AuthDeps struct {
	Identities ports.IdentityRepository
	Hasher     ports.PasswordHasher
	Tokens     ports.TokenService
	Resets     *ResetService
	Throttle   ports.LoginThrottle
	Audit      ports.AuditRecorder
	Validator  *validation.Validator
}

type AuthConfig struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	MaxLoginFailures int
}

// AuthService implements signup, login, token refresh, admin toggling and the
// reset handshake entry points.
type AuthService struct {
	deps AuthDeps
	cfg  AuthConfig
	now  func() time.Time
	log  zerolog.Logger

	placeholderMu   sync.Mutex
	placeholderHash []byte
}

func NewAuthService(deps AuthDeps, cfg AuthConfig, log zerolog.Logger, opts ...Option) *AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.MaxLoginFailures <= 0 {
		cfg.MaxLoginFailures = defaultMaxLoginFailures
	}
	if deps.Throttle == nil {
		deps.Throttle = nopThrottle{}
	}
	if deps.Audit == nil {
		deps.Audit = nopAudit{}
	}
	if deps.Validator == nil {
		deps.Validator = validation.New()
	}
	o := applyOptions(opts)
	return &AuthService{deps: deps, cfg: cfg, now: o.now, log: log}
}

// Signup creates a plain user identity.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.Identity, error) {
	trimSignup(&in)
	if err := s.deps.Validator.Struct(in); err != nil {
		return nil, err
	}

	hash, err := s.deps.Hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("signup: hash: %w", err)
	}

	created, err := s.deps.Identities.Create(ctx, newIdentity(in, domain.RoleUser, hash))
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.created(ctx, created, domain.EventSignup)
	return created, nil
}

// ContributorSignup creates a contributor identity together with its profile.
func (s *AuthService) ContributorSignup(ctx context.Context, in ports.ContributorSignupInput) (*domain.Identity, error) {
	trimSignup(&in.SignupInput)
	if err := s.deps.Validator.Struct(in.SignupInput); err != nil {
		return nil, err
	}
	if err := s.deps.Validator.Profile(in.Profile); err != nil {
		return nil, err
	}

	dob, err := validation.ParseDate(in.Profile.DateOfBirth)
	if err != nil {
		return nil, domain.NewProfileValidationError(domain.FieldError{
			Field:   "date_of_birth",
			Message: "date_of_birth must be a past date (YYYY-MM-DD)",
		})
	}

	hash, err := s.deps.Hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("contributor signup: hash: %w", err)
	}

	p := in.Profile
	profile := &domain.ContributorProfile{
		LegalFullName:  strings.TrimSpace(p.LegalFullName),
		ShowNamePublic: p.ShowNamePublic,
		DateOfBirth:    dob,
		PhoneNumber:    strings.TrimSpace(p.PhoneNumber),
		Country:        p.Country,
		State:          p.State,
		Nationality:    p.Nationality,
		Occupation:     p.Occupation,
		Gender:         p.Gender,
		Height:         p.Height,
		Weight:         p.Weight,
		ShoeSize:       p.ShoeSize,
		SkinTone:       p.SkinTone,
		HairColor:      p.HairColor,
		BodyTypeMale:   p.BodyTypeMale,
		BodyTypeFemale: p.BodyTypeFemale,
	}

	created, err := s.deps.Identities.CreateContributor(ctx, newIdentity(in.SignupInput, domain.RoleContributor, hash), profile)
	if err != nil {
		return nil, fmt.Errorf("contributor signup: %w", err)
	}
	if created.Profile != nil {
		created.Profile.Age = created.Profile.AgeOn(s.now())
	}

	s.created(ctx, created, domain.EventContributorSignup)
	return created, nil
}

// Login verifies the credential and issues a session pair. Unknown emails,
// wrong passwords and inactive identities all fail with
// domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	if err := s.deps.Validator.Struct(in); err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(in.Email)

	failures, err := s.deps.Throttle.Failures(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Msg("login throttle check failed, proceeding")
	} else if failures >= s.cfg.MaxLoginFailures {
		metrics.LoginsTotal.WithLabelValues("throttled").Inc()
		record(ctx, s.deps.Audit, s.log, &domain.AuthEvent{
			Type:       domain.EventLoginThrottled,
			Email:      email,
			OccurredAt: s.now().UTC(),
		})
		return nil, domain.ErrTooManyAttempts
	}

	identity, err := s.deps.Identities.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		s.burnVerify(ctx, in.Password)
		return nil, s.loginFailed(ctx, email, "", domain.ErrIdentityNotFound)
	}
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	ok, err := s.deps.Hasher.Verify(ctx, in.Password, identity.CredentialHash)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: verify: %w", err)
	}
	if !ok {
		return nil, s.loginFailed(ctx, email, identity.ID, domain.ErrInvalidCredentials)
	}
	if !identity.IsActive {
		return nil, s.loginFailed(ctx, email, identity.ID, domain.ErrInactiveIdentity)
	}

	if err := s.deps.Throttle.Reset(ctx, email); err != nil {
		s.log.Warn().Err(err).Str("identity_id", identity.ID).Msg("failed to reset login throttle")
	}

	result, err := s.issueSession(identity)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	record(ctx, s.deps.Audit, s.log, &domain.AuthEvent{
		Type:       domain.EventLoginSucceeded,
		IdentityID: identity.ID,
		OccurredAt: s.now().UTC(),
	})
	s.log.Info().Str("identity_id", identity.ID).Msg("login succeeded")
	return result, nil
}

// Refresh exchanges a refresh token for a new session pair. The identity is
// re-read so role, admin and active changes take effect.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.LoginResult, error) {
	claims, err := s.deps.Tokens.Verify(refreshToken, domain.TokenRefresh)
	if err != nil {
		s.log.Debug().Err(err).Msg("refresh token rejected")
		return nil, domain.ErrUnauthenticated
	}

	identity, err := s.deps.Identities.FindByID(ctx, claims.IdentityID)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if !identity.IsActive {
		return nil, domain.ErrUnauthenticated
	}

	result, err := s.issueSession(identity)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return result, nil
}

// ToggleAdmin sets the admin flag of the identity registered under in.Email.
// The caller must currently hold the admin flag and may not revoke their own.
func (s *AuthService) ToggleAdmin(ctx context.Context, caller domain.Principal, in ports.ToggleAdminInput) (*domain.Identity, error) {
	if !caller.IsAdmin {
		return nil, domain.ErrForbidden
	}
	actor, err := s.deps.Identities.FindByID(ctx, caller.IdentityID)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, domain.ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("toggle admin: %w", err)
	}
	if !actor.IsAdmin || !actor.IsActive {
		return nil, domain.ErrForbidden
	}

	if err := s.deps.Validator.Struct(in); err != nil {
		return nil, err
	}

	target, err := s.deps.Identities.FindByEmail(ctx, domain.NormalizeEmail(in.Email))
	if err != nil {
		return nil, fmt.Errorf("toggle admin: %w", err)
	}
	if target.ID == actor.ID && !in.Value {
		return nil, domain.ErrForbidden
	}

	updated, err := s.deps.Identities.SetAdminFlag(ctx, target.ID, in.Value)
	if err != nil {
		return nil, fmt.Errorf("toggle admin: %w", err)
	}

	record(ctx, s.deps.Audit, s.log, &domain.AuthEvent{
		Type:       domain.EventAdminToggled,
		IdentityID: updated.ID,
		ActorID:    actor.ID,
		Detail:     map[string]string{"is_admin": fmt.Sprint(updated.IsAdmin)},
		OccurredAt: s.now().UTC(),
	})
	s.log.Info().
		Str("identity_id", updated.ID).
		Str("actor_id", actor.ID).
		Bool("is_admin", updated.IsAdmin).
		Msg("admin flag changed")
	return updated, nil
}

// BootstrapAdmin grants the admin flag to the identity registered under
// in.Email, creating it first when absent. It backs the operator command that
// seeds the first admin, since ToggleAdmin requires an admin caller.
func (s *AuthService) BootstrapAdmin(ctx context.Context, in ports.SignupInput) (*domain.Identity, error) {
	email := domain.NormalizeEmail(in.Email)
	existing, err := s.deps.Identities.FindByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrIdentityNotFound):
		existing, err = s.Signup(ctx, in)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	if existing.IsAdmin {
		return existing, nil
	}
	updated, err := s.deps.Identities.SetAdminFlag(ctx, existing.ID, true)
	if err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	record(ctx, s.deps.Audit, s.log, &domain.AuthEvent{
		Type:       domain.EventAdminToggled,
		IdentityID: updated.ID,
		Detail:     map[string]string{"is_admin": "true", "source": "bootstrap"},
		OccurredAt: s.now().UTC(),
	})
	s.log.Info().Str("identity_id", updated.ID).Msg("admin bootstrapped")
	return updated, nil
}

// RequestReset always succeeds from the caller's point of view.
func (s *AuthService) RequestReset(ctx context.Context, in ports.ResetRequestInput) error {
	if err := s.deps.Validator.Struct(in); err != nil {
		s.log.Debug().Err(err).Msg("malformed reset request ignored")
		return nil
	}
	s.deps.Resets.RequestReset(ctx, in.Email)
	return nil
}

// ConfirmReset validates the new credential and completes the handshake.
func (s *AuthService) ConfirmReset(ctx context.Context, in ports.ResetConfirmInput) error {
	if err := s.deps.Validator.Struct(in); err != nil {
		return err
	}
	if in.Password != in.ConfirmPassword {
		return domain.ErrCredentialMismatch
	}
	return s.deps.Resets.ConfirmReset(ctx, in.Token, in.Password)
}

// CurrentIdentity resolves an access token to the caller. Refresh and reset
// tokens are rejected.
func (s *AuthService) CurrentIdentity(_ context.Context, accessToken string) (domain.Principal, error) {
	claims, err := s.deps.Tokens.Verify(accessToken, domain.TokenAccess)
	if err != nil {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	return claims.Principal(), nil
}

func (s *AuthService) issueSession(identity *domain.Identity) (*ports.LoginResult, error) {
	claims := domain.Claims{
		IdentityID: identity.ID,
		Role:       identity.Role,
		IsAdmin:    identity.IsAdmin,
	}
	access, accessExpiry, err := s.deps.Tokens.Issue(claims, domain.TokenAccess, s.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, _, err := s.deps.Tokens.Issue(claims, domain.TokenRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &ports.LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExpiry: accessExpiry,
		IdentityID:   identity.ID,
		Role:         identity.Role,
		IsAdmin:      identity.IsAdmin,
	}, nil
}

// loginFailed records cause for audit and logs, then returns the single error
// every failed login gets.
func (s *AuthService) loginFailed(ctx context.Context, email, identityID string, cause error) error {
	if _, err := s.deps.Throttle.RecordFailure(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("failed to record login failure")
	}
	metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
	record(ctx, s.deps.Audit, s.log, &domain.AuthEvent{
		Type:       domain.EventLoginFailed,
		IdentityID: identityID,
		Email:      email,
		Detail:     map[string]string{"reason": cause.Error()},
		OccurredAt: s.now().UTC(),
	})
	s.log.Debug().Err(cause).Str("identity_id", identityID).Msg("login failed")
	return domain.ErrInvalidCredentials
}

// burnVerify runs a verification whose result is discarded, so unknown
// emails cost the same as wrong passwords.
func (s *AuthService) burnVerify(ctx context.Context, plaintext string) {
	placeholder := s.placeholder(ctx)
	if placeholder != nil {
		_, _ = s.deps.Hasher.Verify(ctx, plaintext, placeholder)
	}
}

// placeholder returns the hash verified against for unknown emails, building
// it on first use. A failed build is retried by the next caller.
func (s *AuthService) placeholder(ctx context.Context) []byte {
	s.placeholderMu.Lock()
	defer s.placeholderMu.Unlock()
	if s.placeholderHash != nil {
		return s.placeholderHash
	}
	hash, err := s.deps.Hasher.Hash(context.WithoutCancel(ctx), timingPlaceholder)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to prepare placeholder hash")
		return nil
	}
	s.placeholderHash = hash
	return hash
}

func (s *AuthService) created(ctx context.Context, identity *domain.Identity, event domain.AuthEventType) {
	metrics.SignupsTotal.WithLabelValues(string(identity.Role)).Inc()
	record(ctx, s.deps.Audit, s.log, &domain.AuthEvent{
		Type:       event,
		IdentityID: identity.ID,
		Email:      identity.Email,
		OccurredAt: identity.CreatedAt,
	})
	s.log.Info().
		Str("identity_id", identity.ID).
		Str("role", string(identity.Role)).
		Msg("identity created")
}

func trimSignup(in *ports.SignupInput) {
	in.Email = strings.TrimSpace(in.Email)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
}

func newIdentity(in ports.SignupInput, role domain.Role, hash []byte) *domain.Identity {
	return &domain.Identity{
		Email:          domain.NormalizeEmail(in.Email),
		DisplayName:    in.DisplayName,
		Role:           role,
		IsActive:       true,
		CredentialHash: hash,
	}
}

var _ ports.AuthService = (*AuthService)(nil)
