package domain

import (
	"errors"
	"strings"
)

// Conflict
var (
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrDuplicateDisplayName = errors.New("display name already taken")
	ErrDuplicatePhone       = errors.New("phone number already registered")
)

var (
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidToken       = errors.New("invalid or expired reset token")
	ErrCredentialMismatch = errors.New("passwords do not match")
	ErrTooManyAttempts    = errors.New("too many failed attempts")
	ErrInactiveIdentity   = errors.New("identity is inactive")
)

// Token verification reasons. They are kept apart for metrics and logs and
// collapsed to ErrUnauthenticated or ErrInvalidToken at the service boundary.
var (
	ErrTokenInvalid     = errors.New("token signature or format invalid")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotYetValid = errors.New("token not yet valid")
	ErrTokenWrongKind   = errors.New("token kind not accepted")
)

// Sentinels matched by ValidationError.Unwrap.
var (
	ErrValidation        = errors.New("validation failed")
	ErrProfileValidation = errors.New("profile validation failed")
)

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field that failed validation. Profile is set
// when the failing fields belong to the nested contributor profile.
type ValidationError struct {
	Profile bool
	Fields  []FieldError
}

func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func NewProfileValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Profile: true, Fields: fields}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return e.Unwrap().Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	if e.Profile {
		return ErrProfileValidation
	}
	return ErrValidation
}

// IsConflict reports whether err is one of the uniqueness violations.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrDuplicateDisplayName) ||
		errors.Is(err, ErrDuplicatePhone)
}
