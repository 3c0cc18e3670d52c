package ports

import (
	"context"
	"time"

	"github.com/selectexposure/authcore/internal/core/domain"
)

// SignupInput carries the fields shared by both signup flows.
type SignupInput struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	DisplayName     string `json:"display_name" validate:"required,min=3,max=150"`
	Password        string `json:"password" validate:"required,password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// ProfileInput is the nested contributor profile. DateOfBirth is YYYY-MM-DD.
type ProfileInput struct {
	LegalFullName  string `json:"legal_full_name" validate:"required,max=255"`
	ShowNamePublic bool   `json:"show_name_public"`
	DateOfBirth    string `json:"date_of_birth" validate:"required,pastdate"`
	PhoneNumber    string `json:"phone_number" validate:"required,max=20"`
	Country        string `json:"country" validate:"required,max=100"`
	State          string `json:"state" validate:"omitempty,max=100"`
	Nationality    string `json:"nationality" validate:"omitempty,max=100"`
	Occupation     string `json:"occupation" validate:"omitempty,max=100"`
	Gender         string `json:"gender" validate:"required,oneof=male female other"`
	Height         string `json:"height" validate:"required,max=20"`
	Weight         string `json:"weight" validate:"required,max=20"`
	ShoeSize       string `json:"shoe_size" validate:"required,max=10"`
	SkinTone       string `json:"skin_tone" validate:"required,oneof=light medium dark"`
	HairColor      string `json:"hair_color" validate:"required,oneof=blonde brown black red auburn dirty_blonde strawberry_blonde other"`
	BodyTypeMale   string `json:"body_type_male" validate:"omitempty,oneof=short_thin short_broad athletic tall_slim big_tall"`
	BodyTypeFemale string `json:"body_type_female" validate:"omitempty,oneof=petite tall_slender athletic curvy plus_size"`
}

// ContributorSignupInput is a signup with the nested profile.
type ContributorSignupInput struct {
	SignupInput
	Profile ProfileInput `json:"profile" validate:"-"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ToggleAdminInput struct {
	Email string `json:"email" validate:"required,email"`
	Value bool   `json:"value"`
}

type ResetRequestInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetConfirmInput struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,password"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// LoginResult is the session handed back by login and refresh.
type LoginResult struct {
	AccessToken  string      `json:"access"`
	RefreshToken string      `json:"refresh"`
	AccessExpiry time.Time   `json:"access_expires_at"`
	IdentityID   string      `json:"id"`
	Role         domain.Role `json:"role"`
	IsAdmin      bool        `json:"is_admin"`
}

// AuthService is the facade consumed by the HTTP layer and by collaborators
// that only need CurrentIdentity.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.Identity, error)
	ContributorSignup(ctx context.Context, in ContributorSignupInput) (*domain.Identity, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	ToggleAdmin(ctx context.Context, caller domain.Principal, in ToggleAdminInput) (*domain.Identity, error)
	RequestReset(ctx context.Context, in ResetRequestInput) error
	ConfirmReset(ctx context.Context, in ResetConfirmInput) error
	CurrentIdentity(ctx context.Context, accessToken string) (domain.Principal, error)
}
