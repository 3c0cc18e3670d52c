package domain

import (
	"strings"
	"time"
)

// Role is the account category. It is independent of the admin flag.
type Role string

const (
	RoleUser        Role = "user"
	RoleContributor Role = "contributor"
	RoleAdmin       Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleContributor, RoleAdmin:
		return true
	}
	return false
}

// Identity models one account. CredentialHash is opaque and never serialised.
type Identity struct {
	ID             string              `json:"id"`
	Email          string              `json:"email"`
	DisplayName    string              `json:"display_name"`
	Role           Role                `json:"role"`
	IsAdmin        bool                `json:"is_admin"`
	IsActive       bool                `json:"is_active"`
	CredentialHash []byte              `json:"-"`
	Profile        *ContributorProfile `json:"contributor_profile,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Principal returns the claim view of the identity used for token issuance.
func (i *Identity) Principal() Principal {
	return Principal{IdentityID: i.ID, Role: i.Role, IsAdmin: i.IsAdmin}
}

// Principal is the authenticated caller as seen by downstream features
// (contests, invites, badges) after access token verification.
type Principal struct {
	IdentityID string `json:"id"`
	Role       Role   `json:"role"`
	IsAdmin    bool   `json:"is_admin"`
}

// NormalizeEmail trims and lower-cases an address for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
