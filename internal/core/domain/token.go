package domain

import "time"

// TokenKind distinguishes what a signed token may be used for.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
	TokenReset   TokenKind = "reset"
)

// PurposeReset is the only purpose carried by reset tokens.
const PurposeReset = "reset"

// Claims is the closed claim set carried by every token this core signs.
type Claims struct {
	IdentityID string
	Role       Role
	IsAdmin    bool
	Kind       TokenKind
	Purpose    string
	// Nonce is the token id (jti). For reset tokens it is the single-use nonce.
	Nonce     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal returns the caller view of an access or refresh claim set.
func (c Claims) Principal() Principal {
	return Principal{IdentityID: c.IdentityID, Role: c.Role, IsAdmin: c.IsAdmin}
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExpiry time.Time
}
