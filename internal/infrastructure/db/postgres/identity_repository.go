package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/selectexposure/authcore/internal/core/domain"
	"github.com/selectexposure/authcore/internal/core/ports"
)

const identityColumns = `id::text, email, display_name, role, is_admin, is_active, password_hash, created_at, updated_at`

// Unique constraints, see migrations/00001_init.sql.
var conflictByConstraint = map[string]error{
	"identities_email_lower_key":            domain.ErrDuplicateEmail,
	"identities_display_name_key":           domain.ErrDuplicateDisplayName,
	"contributor_profiles_phone_number_key": domain.ErrDuplicatePhone,
}

// IdentityRepository implements ports.IdentityRepository using PostgreSQL.
type IdentityRepository struct {
	db  DB
	now func() time.Time
}

// NewIdentityRepository creates a new IdentityRepository.
func NewIdentityRepository(db DB) *IdentityRepository {
	return &IdentityRepository{db: db, now: time.Now}
}

// Create stores a new identity. ID and timestamps are assigned here.
func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	created := r.prepare(identity)
	if err := insertIdentity(ctx, r.db, created); err != nil {
		return nil, err
	}
	return created, nil
}

// CreateContributor stores identity and profile in one transaction.
func (r *IdentityRepository) CreateContributor(ctx context.Context, identity *domain.Identity, profile *domain.ContributorProfile) (*domain.Identity, error) {
	created := r.prepare(identity)
	p := *profile
	p.IdentityID = created.ID

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := insertIdentity(ctx, tx, created); err != nil {
			return err
		}
		return insertProfile(ctx, tx, &p)
	})
	if err != nil {
		return nil, err
	}
	created.Profile = &p
	return created, nil
}

// FindByEmail retrieves an identity by email (case-insensitive).
func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE lower(email) = lower($1)
	`, email)

	identity, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			With("email", email).
			Wrap(domain.ErrIdentityNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_BY_EMAIL_FAILED").
			With("operation", "get identity by email").
			Wrap(err)
	}
	return identity, nil
}

// FindByID retrieves an identity by ID.
func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			With("id", id).
			Wrap(domain.ErrIdentityNotFound)
	}

	row := r.db.QueryRow(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE id = $1
	`, id)

	identity, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			With("id", id).
			Wrap(domain.ErrIdentityNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_BY_ID_FAILED").
			With("operation", "get identity by id").
			With("id", id).
			Wrap(err)
	}
	return identity, nil
}

// SetAdminFlag updates the admin flag and returns the updated identity.
func (r *IdentityRepository) SetAdminFlag(ctx context.Context, id string, value bool) (*domain.Identity, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE identities
		SET is_admin = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+identityColumns,
		id, value, r.now().UTC())

	identity, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			With("id", id).
			Wrap(domain.ErrIdentityNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_SET_ADMIN_FAILED").
			With("operation", "update admin flag").
			With("id", id).
			Wrap(err)
	}
	return identity, nil
}

// SetCredential replaces the stored credential hash.
func (r *IdentityRepository) SetCredential(ctx context.Context, id string, credentialHash []byte) error {
	return updateCredential(ctx, r.db, id, credentialHash, r.now().UTC())
}

func (r *IdentityRepository) prepare(identity *domain.Identity) *domain.Identity {
	created := *identity
	created.ID = uuid.NewString()
	created.Email = domain.NormalizeEmail(identity.Email)
	now := r.now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertIdentity(ctx context.Context, db execer, identity *domain.Identity) error {
	_, err := db.Exec(ctx, `
		INSERT INTO identities (
			id, email, display_name, role, is_admin, is_active,
			password_hash, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		identity.ID,
		identity.Email,
		identity.DisplayName,
		string(identity.Role),
		identity.IsAdmin,
		identity.IsActive,
		identity.CredentialHash,
		identity.CreatedAt,
		identity.UpdatedAt,
	)
	if err != nil {
		return insertError(err, "insert identity")
	}
	return nil
}

func insertProfile(ctx context.Context, db execer, p *domain.ContributorProfile) error {
	_, err := db.Exec(ctx, `
		INSERT INTO contributor_profiles (
			identity_id, legal_full_name, show_name_public, date_of_birth,
			phone_number, country, state, nationality, occupation, gender,
			height, weight, shoe_size, skin_tone, hair_color,
			body_type_male, body_type_female
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		p.IdentityID,
		p.LegalFullName,
		p.ShowNamePublic,
		p.DateOfBirth,
		p.PhoneNumber,
		p.Country,
		nullIfEmpty(p.State),
		nullIfEmpty(p.Nationality),
		nullIfEmpty(p.Occupation),
		p.Gender,
		p.Height,
		p.Weight,
		p.ShoeSize,
		p.SkinTone,
		p.HairColor,
		nullIfEmpty(p.BodyTypeMale),
		nullIfEmpty(p.BodyTypeFemale),
	)
	if err != nil {
		return insertError(err, "insert contributor profile")
	}
	return nil
}

func updateCredential(ctx context.Context, db execer, id string, credentialHash []byte, now time.Time) error {
	result, err := db.Exec(ctx, `
		UPDATE identities
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id, credentialHash, now)
	if err != nil {
		return oops.Code("IDENTITY_SET_CREDENTIAL_FAILED").
			With("operation", "update credential").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("IDENTITY_NOT_FOUND").
			With("id", id).
			Wrap(domain.ErrIdentityNotFound)
	}
	return nil
}

func insertError(err error, operation string) error {
	if constraint, ok := uniqueViolation(err); ok {
		if conflict, known := conflictByConstraint[constraint]; known {
			return oops.Code("IDENTITY_CONFLICT").
				With("constraint", constraint).
				Wrap(conflict)
		}
	}
	return oops.Code("IDENTITY_CREATE_FAILED").
		With("operation", operation).
		Wrap(err)
}

// scanIdentity scans a single row into an Identity.
// Callers are responsible for handling pgx.ErrNoRows.
func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var (
		identity domain.Identity
		role     string
	)
	err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.DisplayName,
		&role,
		&identity.IsAdmin,
		&identity.IsActive,
		&identity.CredentialHash,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	identity.Role = domain.Role(role)
	if !identity.Role.Valid() {
		return nil, oops.Code("IDENTITY_ROLE_INVALID").
			With("id", identity.ID).
			With("role", role).
			Errorf("unknown role %q", role)
	}
	return &identity, nil
}

// Compile-time interface check.
var _ ports.IdentityRepository = (*IdentityRepository)(nil)
