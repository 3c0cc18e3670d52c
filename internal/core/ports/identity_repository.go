package ports

import (
	"context"

	"github.com/selectexposure/authcore/internal/core/domain"
)

// IdentityRepository is the credential store. Uniqueness of email (case
// insensitive) and display name is enforced by the store itself.
type IdentityRepository interface {
	// Create persists a plain identity. Returns domain.ErrDuplicateEmail or
	// domain.ErrDuplicateDisplayName on conflict.
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)

	// CreateContributor persists identity and profile in one transaction:
	// both rows exist afterwards or neither does.
	CreateContributor(ctx context.Context, identity *domain.Identity, profile *domain.ContributorProfile) (*domain.Identity, error)

	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)

	SetAdminFlag(ctx context.Context, id string, value bool) (*domain.Identity, error)
	SetCredential(ctx context.Context, id string, credentialHash []byte) error
}
