// Package validation turns go-playground/validator failures into the
// structured field errors of the domain error taxonomy.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/selectexposure/authcore/internal/core/domain"
)

// Password bounds. bcrypt ignores bytes past 72.
const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Validator checks tagged input structs.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

type Option func(*Validator)

// WithClock overrides the clock used by the pastdate rule.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

func New(opts ...Option) *Validator {
	val := &Validator{v: validator.New(validator.WithRequiredStructEnabled()), now: time.Now}
	for _, o := range opts {
		o(val)
	}

	val.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = val.v.RegisterValidation("password", validPassword)
	_ = val.v.RegisterValidation("pastdate", val.validPastDate)
	return val
}

// Struct validates s and returns a *domain.ValidationError listing every
// failed field, or nil.
func (v *Validator) Struct(s any) error {
	fields, err := v.check(s)
	if err != nil || fields == nil {
		return err
	}
	return domain.NewValidationError(fields...)
}

// Profile is Struct for the nested contributor profile.
func (v *Validator) Profile(s any) error {
	fields, err := v.check(s)
	if err != nil || fields == nil {
		return err
	}
	return domain.NewProfileValidationError(fields...)
}

// Password applies the credential rule to a bare string.
func (v *Validator) Password(field, plaintext string) error {
	if err := v.v.Var(plaintext, "required,password"); err != nil {
		return domain.NewValidationError(domain.FieldError{
			Field:   field,
			Message: passwordMessage(field),
		})
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

func (v *Validator) check(s any) ([]domain.FieldError, error) {
	err := v.v.Struct(s)
	if err == nil {
		return nil, nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("validate: %w", err)
	}
	fields := make([]domain.FieldError, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, domain.FieldError{Field: fe.Field(), Message: fieldError(fe)})
	}
	return fields, nil
}

func validPassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return len([]rune(s)) >= MinPasswordLength && len(s) <= MaxPasswordBytes
}

func (v *Validator) validPastDate(fl validator.FieldLevel) bool {
	d, err := ParseDate(fl.Field().String())
	if err != nil {
		return false
	}
	y, m, day := v.now().UTC().Date()
	return d.Before(time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
}

func passwordMessage(field string) string {
	return fmt.Sprintf("%s must be %d to %d characters", field, MinPasswordLength, MaxPasswordBytes)
}

// fieldError converts a single FieldError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "eqfield":
		return field + " does not match"
	case "password":
		return passwordMessage(field)
	case "pastdate":
		return field + " must be a past date (YYYY-MM-DD)"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
