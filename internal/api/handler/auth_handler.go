package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pharmacy/backoffice/internal/api/metrics"
	"github.com/pharmacy/backoffice/internal/core/domain"
	"github.com/pharmacy/backoffice/internal/core/ports"
)

const tokenType = "Bearer"

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required,max=100"`
	Password        string `json:"password" validate:"required,max=72"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"fullName" validate:"required,max=100"`
}

// authResponse is the login/registration envelope. On failure token is null
// and only message is meaningful.
type authResponse struct {
	Token     *string    `json:"token"`
	Type      string     `json:"type"`
	Username  string     `json:"username,omitempty"`
	Email     string     `json:"email,omitempty"`
	FullName  string     `json:"fullName,omitempty"`
	Role      string     `json:"role,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Message   string     `json:"message"`
}

func successEnvelope(res *ports.AuthResult, msg string) authResponse {
	token := res.Token
	expires := res.ExpiresAt
	return authResponse{
		Token:     &token,
		Type:      tokenType,
		Username:  res.Username,
		Email:     res.Email,
		FullName:  res.FullName,
		Role:      string(res.Role),
		ExpiresAt: &expires,
		Message:   msg,
	}
}

func failureEnvelope(msg string) authResponse {
	return authResponse{Type: tokenType, Message: msg}
}

// Login authenticates a user by username or email and returns a token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  authResponse
// @Failure      401   {object}  authResponse
// @Failure      429   {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid_input").Inc()
		return c.JSON(http.StatusBadRequest, failureEnvelope("invalid payload"))
	}
	if err := c.Validate(&req); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid_input").Inc()
		return c.JSON(http.StatusBadRequest, failureEnvelope(err.Error()))
	}

	res, err := h.authService.Login(c.Request().Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		// One message for every failure cause.
		metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid_credentials").Inc()
		return c.JSON(http.StatusUnauthorized, failureEnvelope(domain.ErrInvalidCredentials.Error()))
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return c.JSON(http.StatusOK, successEnvelope(res, "Login successful"))
}

// Register creates a USER account and signs it in.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  authResponse
// @Failure      409   {object}  authResponse
// @Failure      429   {object}  map[string]string
// @Failure      500   {object}  authResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "invalid_input").Inc()
		return c.JSON(http.StatusBadRequest, failureEnvelope("invalid payload"))
	}
	if err := c.Validate(&req); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "invalid_input").Inc()
		return c.JSON(http.StatusBadRequest, failureEnvelope(err.Error()))
	}

	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUsernameTaken):
			metrics.AuthAttemptsTotal.WithLabelValues("register", "conflict").Inc()
			return c.JSON(http.StatusConflict, failureEnvelope("Error: Username is already taken!"))
		case errors.Is(err, domain.ErrEmailTaken):
			metrics.AuthAttemptsTotal.WithLabelValues("register", "conflict").Inc()
			return c.JSON(http.StatusConflict, failureEnvelope("Error: Email is already in use!"))
		case errors.Is(err, domain.ErrInvalidInput):
			metrics.AuthAttemptsTotal.WithLabelValues("register", "invalid_input").Inc()
			return c.JSON(http.StatusBadRequest, failureEnvelope(err.Error()))
		}
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	return c.JSON(http.StatusCreated, successEnvelope(res, "User registered successfully"))
}

type meResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Me echoes the authenticated principal.
//
// @Summary      Current principal
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meResponse{Username: p.Username, Role: string(p.Role)})
}
