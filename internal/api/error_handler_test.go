package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"github.com/selectexposure/authcore/internal/core/domain"
)

func render(t *testing.T, err error) (int, errorResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var body errorResponse
	if jerr := json.Unmarshal(rec.Body.Bytes(), &body); jerr != nil {
		t.Fatalf("decode body: %v", jerr)
	}
	return rec.Code, body
}

func TestHTTPErrorHandler_DomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"duplicate email", fmt.Errorf("signup: %w", domain.ErrDuplicateEmail), http.StatusConflict, "email already registered"},
		{"duplicate phone wrapped by oops", oops.Code("IDENTITY_CONFLICT").Wrap(domain.ErrDuplicatePhone), http.StatusConflict, "phone number already registered"},
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized, "invalid or expired token"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "access forbidden"},
		{"not found", fmt.Errorf("toggle admin: %w", domain.ErrIdentityNotFound), http.StatusNotFound, "identity not found"},
		{"invalid reset token", domain.ErrInvalidToken, http.StatusBadRequest, "invalid or expired reset token"},
		{"mismatch", domain.ErrCredentialMismatch, http.StatusBadRequest, "passwords do not match"},
		{"throttled", domain.ErrTooManyAttempts, http.StatusTooManyRequests, "too many failed attempts"},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest, "invalid payload"},
		{"unknown", errors.New("connection refused"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := render(t, tt.err)
			if code != tt.code {
				t.Fatalf("expected status %d, got %d", tt.code, code)
			}
			if body.Error != tt.msg {
				t.Fatalf("expected message %q, got %q", tt.msg, body.Error)
			}
		})
	}
}

func TestHTTPErrorHandler_ValidationFields(t *testing.T) {
	err := domain.NewProfileValidationError(
		domain.FieldError{Field: "gender", Message: "gender must be one of: male female other"},
		domain.FieldError{Field: "phone_number", Message: "phone_number is required"},
	)

	code, body := render(t, err)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if body.Error != "profile validation failed" {
		t.Fatalf("unexpected message: %q", body.Error)
	}
	if len(body.Fields) != 2 || body.Fields[1].Field != "phone_number" {
		t.Fatalf("unexpected fields: %+v", body.Fields)
	}
}
