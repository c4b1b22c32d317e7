package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/umbrella-rental/internal/repository"
	"github.com/iliyamo/umbrella-rental/internal/service"
	"github.com/iliyamo/umbrella-rental/internal/validation"
)

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct {
	Users    *repository.UserRepo
	Accounts *service.AccountService
}

func NewProfileHandler(u *repository.UserRepo, a *service.AccountService) *ProfileHandler {
	return &ProfileHandler{Users: u, Accounts: a}
}

type profileReq struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Mobile       *string `json:"mobile"`
	ProfileImage *string `json:"profileImage"`
	OldPassword  string  `json:"oldPassword"`
	NewPassword  *string `json:"newPassword"`
}

// Get handles GET /api/users/profile.
func (h *ProfileHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err, "Failed to load profile")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

// Update handles PUT /api/users/profile. Only the fields present in the
// body change; a new password needs the current one.
func (h *ProfileHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Name != nil {
		n := strings.TrimSpace(*req.Name)
		if n == "" {
			return badRequest(c, "Name cannot be empty")
		}
		req.Name = &n
	}
	if req.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := validation.Email(e); err != nil {
			return respondError(c, err, "")
		}
		req.Email = &e
	}
	if req.Mobile != nil {
		m := validation.NormalizeMobile(*req.Mobile)
		if err := validation.Mobile(m); err != nil {
			return respondError(c, err, "")
		}
		req.Mobile = &m
	}
	if req.NewPassword != nil && *req.NewPassword == "" {
		return badRequest(c, "New password cannot be empty")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Accounts.UpdateProfile(ctx, uid, service.ProfileInput{
		Name:         req.Name,
		Email:        req.Email,
		Mobile:       req.Mobile,
		ProfileImage: req.ProfileImage,
		OldPassword:  req.OldPassword,
		NewPassword:  req.NewPassword,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "Email or mobile number already in use"})
		}
		return respondError(c, err, "Failed to update profile")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u, "message": "Profile updated successfully"})
}
