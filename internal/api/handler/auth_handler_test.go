package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/selectexposure/authcore/internal/api/middleware"
	"github.com/selectexposure/authcore/internal/core/domain"
	"github.com/selectexposure/authcore/internal/core/ports"
)

type stubAuthService struct {
	signupFn            func(ctx context.Context, in ports.SignupInput) (*domain.Identity, error)
	contributorSignupFn func(ctx context.Context, in ports.ContributorSignupInput) (*domain.Identity, error)
	loginFn             func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error)
	refreshFn           func(ctx context.Context, token string) (*ports.LoginResult, error)
	toggleAdminFn       func(ctx context.Context, caller domain.Principal, in ports.ToggleAdminInput) (*domain.Identity, error)
	requestResetFn      func(ctx context.Context, in ports.ResetRequestInput) error
	confirmResetFn      func(ctx context.Context, in ports.ResetConfirmInput) error
	currentIdentityFn   func(ctx context.Context, token string) (domain.Principal, error)
}

func (s *stubAuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.Identity, error) {
	return s.signupFn(ctx, in)
}

func (s *stubAuthService) ContributorSignup(ctx context.Context, in ports.ContributorSignupInput) (*domain.Identity, error) {
	return s.contributorSignupFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) Refresh(ctx context.Context, token string) (*ports.LoginResult, error) {
	return s.refreshFn(ctx, token)
}

func (s *stubAuthService) ToggleAdmin(ctx context.Context, caller domain.Principal, in ports.ToggleAdminInput) (*domain.Identity, error) {
	return s.toggleAdminFn(ctx, caller, in)
}

func (s *stubAuthService) RequestReset(ctx context.Context, in ports.ResetRequestInput) error {
	return s.requestResetFn(ctx, in)
}

func (s *stubAuthService) ConfirmReset(ctx context.Context, in ports.ResetConfirmInput) error {
	return s.confirmResetFn(ctx, in)
}

func (s *stubAuthService) CurrentIdentity(ctx context.Context, token string) (domain.Principal, error) {
	return s.currentIdentityFn(ctx, token)
}

func newJSONContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*domain.Identity, error) {
			if in.Email != "ada@example.com" || in.DisplayName != "ada" || in.ConfirmPassword != "secret-123" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.Identity{ID: "id-1", Email: in.Email, DisplayName: in.DisplayName, Role: domain.RoleUser, CredentialHash: []byte("hash")}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/v1/auth/register",
		`{"email":"ada@example.com","display_name":"ada","password":"secret-123","confirm_password":"secret-123"}`)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "id-1" || resp["role"] != "user" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "hash") {
		t.Fatalf("credential hash leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_PropagatesConflict(t *testing.T) {
	stub := &stubAuthService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*domain.Identity, error) {
			return nil, domain.ErrDuplicateEmail
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newJSONContext(http.MethodPost, "/v1/auth/register", `{"email":"ada@example.com"}`)

	if err := handler.Register(c); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*domain.Identity, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newJSONContext(http.MethodPost, "/v1/auth/register", "not-json")

	err := handler.Register(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestAuthHandler_RegisterContributor_BindsProfile(t *testing.T) {
	stub := &stubAuthService{
		contributorSignupFn: func(ctx context.Context, in ports.ContributorSignupInput) (*domain.Identity, error) {
			if in.Email != "ada@example.com" || in.Profile.PhoneNumber != "+15550001111" || in.Profile.DateOfBirth != "1990-12-10" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.Identity{ID: "id-1", Role: domain.RoleContributor}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/v1/auth/register-contributor",
		`{"email":"ada@example.com","display_name":"ada","password":"secret-123","confirm_password":"secret-123",
		  "profile":{"phone_number":"+15550001111","date_of_birth":"1990-12-10"}}`)

	if err := handler.RegisterContributor(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			if in.Email != "ada@example.com" || in.Password != "secret-123" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.LoginResult{AccessToken: "a", RefreshToken: "r", IdentityID: "id-1", Role: domain.RoleUser, IsAdmin: true}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/v1/auth/login", `{"email":"ada@example.com","password":"secret-123"}`)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["access"] != "a" || resp["refresh"] != "r" || resp["id"] != "id-1" || resp["is_admin"] != true {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newJSONContext(http.MethodPost, "/v1/auth/login", `{"email":"ada@example.com","password":"nope"}`)

	if err := handler.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(ctx context.Context, token string) (*ports.LoginResult, error) {
			if token != "refresh-token" {
				return nil, domain.ErrUnauthenticated
			}
			return &ports.LoginResult{AccessToken: "a2", RefreshToken: "r2"}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/v1/auth/token/refresh", `{"refresh":"refresh-token"}`)
	if err := handler.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newJSONContext(http.MethodPost, "/v1/auth/token/refresh", `{"refresh":"other"}`)
	if err := handler.Refresh(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthHandler_ToggleAdmin_PassesCaller(t *testing.T) {
	caller := domain.Principal{IdentityID: "admin-1", Role: domain.RoleUser, IsAdmin: true}
	stub := &stubAuthService{
		toggleAdminFn: func(ctx context.Context, got domain.Principal, in ports.ToggleAdminInput) (*domain.Identity, error) {
			if got != caller || in.Email != "ada@example.com" || !in.Value {
				t.Fatalf("unexpected call: %+v %+v", got, in)
			}
			return &domain.Identity{ID: "id-1", IsAdmin: true}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/v1/auth/toggle-admin", `{"email":"ada@example.com","value":true}`)
	c.Set(middleware.PrincipalKey, caller)

	if err := handler.ToggleAdmin(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_ToggleAdmin_WithoutPrincipal(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{})

	c, _ := newJSONContext(http.MethodPost, "/v1/auth/toggle-admin", `{"email":"ada@example.com","value":true}`)

	err := handler.ToggleAdmin(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}

func TestAuthHandler_RequestReset_AlwaysGeneric(t *testing.T) {
	calls := 0
	stub := &stubAuthService{
		requestResetFn: func(ctx context.Context, in ports.ResetRequestInput) error {
			calls++
			return nil
		},
	}
	handler := NewAuthHandler(stub)

	for _, body := range []string{`{"email":"ada@example.com"}`, `{"email":"nobody@example.com"}`, `not-json`} {
		c, rec := newJSONContext(http.MethodPost, "/v1/auth/password-reset-request", body)
		if err := handler.RequestReset(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), resetRequestedMessage) {
			t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 service calls, got %d", calls)
	}
}

func TestAuthHandler_ConfirmReset(t *testing.T) {
	stub := &stubAuthService{
		confirmResetFn: func(ctx context.Context, in ports.ResetConfirmInput) error {
			if in.Token == "used" {
				return domain.ErrInvalidToken
			}
			return nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/v1/auth/password-reset",
		`{"token":"fresh","password":"new-pass-123","confirm_password":"new-pass-123"}`)
	if err := handler.ConfirmReset(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newJSONContext(http.MethodPost, "/v1/auth/password-reset",
		`{"token":"used","password":"new-pass-123","confirm_password":"new-pass-123"}`)
	if err := handler.ConfirmReset(c); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{})

	c, rec := newJSONContext(http.MethodGet, "/v1/auth/me", "")
	c.Set(middleware.PrincipalKey, domain.Principal{IdentityID: "id-1", Role: domain.RoleContributor})

	if err := handler.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "id-1" || resp["role"] != "contributor" || resp["is_admin"] != false {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}
