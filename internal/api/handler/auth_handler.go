package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/selectexposure/authcore/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type messageResponse struct {
	Message string `json:"message"`
}

const resetRequestedMessage = "if the email is registered, a password reset link has been sent"

func invalidPayload() error {
	return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      ports.SignupInput  true  "Signup details"
// @Success      201   {object}  domain.Identity
// @Failure      400   {object}  map[string]any
// @Failure      409   {object}  map[string]string
// @Router       /v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.SignupInput
	if err := c.Bind(&req); err != nil {
		return invalidPayload()
	}

	identity, err := h.authService.Signup(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, identity)
}

// RegisterContributor creates a contributor account with its profile.
//
// @Summary      Register a contributor
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      ports.ContributorSignupInput  true  "Signup and profile details"
// @Success      201   {object}  domain.Identity
// @Failure      400   {object}  map[string]any
// @Failure      409   {object}  map[string]string
// @Router       /v1/auth/register-contributor [post]
func (h *AuthHandler) RegisterContributor(c echo.Context) error {
	var req ports.ContributorSignupInput
	if err := c.Bind(&req); err != nil {
		return invalidPayload()
	}

	identity, err := h.authService.ContributorSignup(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, identity)
}

// Login authenticates an identity and returns an access and refresh token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      ports.LoginInput  true  "Login credentials"
// @Success      200   {object}  ports.LoginResult
// @Failure      400   {object}  map[string]any
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginInput
	if err := c.Bind(&req); err != nil {
		return invalidPayload()
	}

	result, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Refresh exchanges a refresh token for a new token pair.
//
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  ports.LoginResult
// @Failure      401   {object}  map[string]string
// @Router       /v1/auth/token/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload()
	}

	result, err := h.authService.Refresh(c.Request().Context(), req.Refresh)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ToggleAdmin sets or clears the admin flag of another identity.
//
// @Summary      Toggle admin flag
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      ports.ToggleAdminInput  true  "Target email and flag"
// @Success      200   {object}  domain.Identity
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /v1/auth/toggle-admin [post]
func (h *AuthHandler) ToggleAdmin(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req ports.ToggleAdminInput
	if err := c.Bind(&req); err != nil {
		return invalidPayload()
	}

	identity, err := h.authService.ToggleAdmin(c.Request().Context(), caller, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identity)
}

// RequestReset starts the password reset handshake. The response never
// reveals whether the email is registered.
//
// @Summary      Request password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      ports.ResetRequestInput  true  "Email"
// @Success      200   {object}  messageResponse
// @Router       /v1/auth/password-reset-request [post]
func (h *AuthHandler) RequestReset(c echo.Context) error {
	var req ports.ResetRequestInput
	// a malformed body gets the same answer as an unknown email
	_ = c.Bind(&req)

	if err := h.authService.RequestReset(c.Request().Context(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: resetRequestedMessage})
}

// ConfirmReset completes the handshake with the emailed token.
//
// @Summary      Confirm password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      ports.ResetConfirmInput  true  "Token and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]any
// @Router       /v1/auth/password-reset [post]
func (h *AuthHandler) ConfirmReset(c echo.Context) error {
	var req ports.ResetConfirmInput
	if err := c.Bind(&req); err != nil {
		return invalidPayload()
	}

	if err := h.authService.ConfirmReset(c.Request().Context(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password has been reset"})
}

// Me returns the authenticated caller as seen by downstream services.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  domain.Principal
// @Failure      401   {object}  map[string]string
// @Router       /v1/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, caller)
}
