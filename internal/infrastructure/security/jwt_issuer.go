package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/selectexposure/authcore/internal/core/domain"
)

// MinSecretLength is the shortest accepted HS256 signing secret.
const MinSecretLength = 32

type tokenClaims struct {
	Role    string `json:"role,omitempty"`
	Admin   bool   `json:"admin,omitempty"`
	Kind    string `json:"kind"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// JWTIssuer signs and verifies HS256 tokens with a process-wide secret.
type JWTIssuer struct {
	secret   []byte
	issuer   string
	now      func() time.Time
	onReject func(reason string)
}

type JWTOption func(*JWTIssuer)

// WithClock overrides the clock used for iat/nbf/exp.
func WithClock(now func() time.Time) JWTOption {
	return func(j *JWTIssuer) { j.now = now }
}

// WithRejectHook is called with a short reason for every failed Verify.
func WithRejectHook(fn func(reason string)) JWTOption {
	return func(j *JWTIssuer) { j.onReject = fn }
}

func NewJWTIssuer(secret []byte, issuer string, opts ...JWTOption) (*JWTIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
	}
	j := &JWTIssuer{
		secret:   secret,
		issuer:   issuer,
		now:      time.Now,
		onReject: func(string) {},
	}
	for _, o := range opts {
		o(j)
	}
	return j, nil
}

// Issue signs claims as a token of kind valid for ttl. A random jti is
// generated unless claims.Nonce is set.
func (j *JWTIssuer) Issue(claims domain.Claims, kind domain.TokenKind, ttl time.Duration) (string, time.Time, error) {
	if claims.IdentityID == "" {
		return "", time.Time{}, errors.New("jwt issue: empty subject")
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("jwt issue: non-positive ttl %s", ttl)
	}
	jti := claims.Nonce
	if jti == "" {
		jti = uuid.NewString()
	}

	now := j.now().UTC()
	exp := jwt.NewNumericDate(now.Add(ttl))
	tc := tokenClaims{
		Role:    string(claims.Role),
		Admin:   claims.IsAdmin,
		Kind:    string(kind),
		Purpose: claims.Purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.IdentityID,
			Issuer:    j.issuer,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: exp,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt sign: %w", err)
	}
	return signed, exp.UTC(), nil
}

// Verify checks signature, issuer, validity window and kind. Reset tokens
// must also carry the reset purpose.
func (j *JWTIssuer) Verify(token string, kind domain.TokenKind) (domain.Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(token, &tc,
		func(*jwt.Token) (any, error) { return j.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return domain.Claims{}, j.reject(classify(err))
	}
	if tc.Subject == "" || tc.ID == "" {
		return domain.Claims{}, j.reject(domain.ErrTokenInvalid)
	}
	if domain.TokenKind(tc.Kind) != kind {
		return domain.Claims{}, j.reject(domain.ErrTokenWrongKind)
	}
	if kind == domain.TokenReset && tc.Purpose != domain.PurposeReset {
		return domain.Claims{}, j.reject(domain.ErrTokenWrongKind)
	}

	c := domain.Claims{
		IdentityID: tc.Subject,
		Role:       domain.Role(tc.Role),
		IsAdmin:    tc.Admin,
		Kind:       domain.TokenKind(tc.Kind),
		Purpose:    tc.Purpose,
		Nonce:      tc.ID,
	}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c, nil
}

func (j *JWTIssuer) reject(err error) error {
	j.onReject(RejectReason(err))
	return err
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return domain.ErrTokenNotYetValid
	default:
		return domain.ErrTokenInvalid
	}
}

// RejectReason maps a verification error to its metric label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, domain.ErrTokenWrongKind):
		return "wrong_kind"
	default:
		return "invalid"
	}
}
