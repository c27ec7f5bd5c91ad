package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pharmacy/backoffice/internal/core/domain"
	"github.com/pharmacy/backoffice/internal/core/ports"
)

const dateLayout = "2006-01-02"

// AccountHandler serves the caller's own profile and the administrative
// account lookups. Access control is declared in the route table.
type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// --- Request / Response types ---

type updateProfileRequest struct {
	FullName string `json:"fullName" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Birthday string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	Gender   string `json:"gender" validate:"omitempty,max=20"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type profileView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	Birthday string `json:"birthday,omitempty"`
	Gender   string `json:"gender,omitempty"`
}

type profileResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Profile *profileView `json:"profile,omitempty"`
}

type roleStatsResponse struct {
	Total int64            `json:"total"`
	Roles map[string]int64 `json:"roles"`
}

func toProfileView(a *domain.Account) *profileView {
	v := &profileView{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		FullName: a.FullName,
		Role:     string(a.Role),
		Gender:   a.Gender,
	}
	if a.Birthday != nil {
		v.Birthday = a.Birthday.Format(dateLayout)
	}
	return v
}

func profileFailure(code int, msg string) (int, profileResponse) {
	return code, profileResponse{Success: false, Message: msg}
}

// accountFailure maps the self-service errors onto the profile envelope.
// Anything unrecognised goes to the central error handler.
func accountFailure(c echo.Context, prefix string, err error) error {
	var code int
	var body profileResponse
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrWrongCurrentPassword),
		errors.Is(err, domain.ErrPasswordMismatch):
		code, body = profileFailure(http.StatusBadRequest, prefix+err.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		code, body = profileFailure(http.StatusConflict, prefix+err.Error())
	case errors.Is(err, domain.ErrAccountNotFound):
		code, body = profileFailure(http.StatusNotFound, prefix+err.Error())
	case errors.Is(err, domain.ErrMissingCredential):
		code, body = profileFailure(http.StatusUnauthorized, prefix+err.Error())
	default:
		return err
	}
	return c.JSON(code, body)
}

// --- Handlers ---

// GetProfile returns the caller's profile.
//
// @Summary      Current profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/profile [get]
func (h *AccountHandler) GetProfile(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	account, err := h.service.GetProfile(c.Request().Context(), p)
	if err != nil {
		return accountFailure(c, "Failed to get user profile: ", err)
	}
	return c.JSON(http.StatusOK, profileResponse{Success: true, Profile: toProfileView(account)})
}

// UpdateProfile changes the caller's name, email, birthday and gender.
//
// @Summary      Update profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Profile fields"
// @Success      200   {object}  profileResponse
// @Failure      400   {object}  profileResponse
// @Failure      409   {object}  profileResponse
// @Router       /api/profile [put]
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(profileFailure(http.StatusBadRequest, "invalid payload"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(profileFailure(http.StatusBadRequest, err.Error()))
	}

	in := ports.UpdateProfileInput{
		FullName: req.FullName,
		Email:    req.Email,
		Gender:   req.Gender,
	}
	if b := strings.TrimSpace(req.Birthday); b != "" {
		t, err := time.Parse(dateLayout, b)
		if err != nil {
			return c.JSON(profileFailure(http.StatusBadRequest, "birthday must be YYYY-MM-DD"))
		}
		in.Birthday = &t
	}

	account, err := h.service.UpdateProfile(c.Request().Context(), p, in)
	if err != nil {
		return accountFailure(c, "Failed to update profile: ", err)
	}
	return c.JSON(http.StatusOK, profileResponse{
		Success: true,
		Message: "Profile updated successfully",
		Profile: toProfileView(account),
	})
}

// ChangePassword replaces the caller's password after checking the current one.
//
// @Summary      Change password
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  profileResponse
// @Failure      400   {object}  profileResponse
// @Router       /api/profile/password [put]
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(profileFailure(http.StatusBadRequest, "invalid payload"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(profileFailure(http.StatusBadRequest, err.Error()))
	}

	err = h.service.ChangePassword(c.Request().Context(), p, ports.ChangePasswordInput{
		Current: req.CurrentPassword,
		New:     req.NewPassword,
		Confirm: req.ConfirmPassword,
	})
	if err != nil {
		return accountFailure(c, "Failed to change password: ", err)
	}
	return c.JSON(http.StatusOK, profileResponse{Success: true, Message: "Password changed successfully"})
}

// GetByID returns any account's profile.
//
// @Summary      Account by id
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  profileResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  profileResponse
// @Router       /api/profile/{id} [get]
func (h *AccountHandler) GetByID(c echo.Context) error {
	account, err := h.service.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return accountFailure(c, "Failed to get user profile: ", err)
	}
	return c.JSON(http.StatusOK, profileResponse{Success: true, Profile: toProfileView(account)})
}

// RoleStats counts accounts per role.
//
// @Summary      Accounts per role
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  roleStatsResponse
// @Failure      403  {object}  map[string]string
// @Router       /api/accounts/stats [get]
func (h *AccountHandler) RoleStats(c echo.Context) error {
	stats, err := h.service.RoleStats(c.Request().Context())
	if err != nil {
		return err
	}

	resp := roleStatsResponse{Roles: make(map[string]int64, len(stats))}
	for role, n := range stats {
		resp.Roles[string(role)] = n
		resp.Total += n
	}
	return c.JSON(http.StatusOK, resp)
}
