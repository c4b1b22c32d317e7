package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/umbrella-rental/internal/config"
	"github.com/iliyamo/umbrella-rental/internal/middleware"
	"github.com/iliyamo/umbrella-rental/internal/model"
	"github.com/iliyamo/umbrella-rental/internal/repository"
	"github.com/iliyamo/umbrella-rental/internal/service"
	"github.com/iliyamo/umbrella-rental/internal/utils"
	"github.com/iliyamo/umbrella-rental/internal/validation"
)

// AdminUserHandler is the user side of the back office.
type AdminUserHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Accounts *service.AccountService
	Ledger   *service.Ledger
}

func NewAdminUserHandler(cfg config.Config, u *repository.UserRepo, a *service.AccountService, l *service.Ledger) *AdminUserHandler {
	return &AdminUserHandler{Cfg: cfg, Users: u, Accounts: a, Ledger: l}
}

type roleReq struct {
	Role string `json:"role"`
}

type addCreditsReq struct {
	UserID  string `json:"userId" validate:"required"`
	Credits int    `json:"credits"`
	Reason  string `json:"reason"`
}

// List handles GET /api/admin/users.
func (h *AdminUserHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return respondError(c, err, "Internal server error")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "users": users, "count": len(users)})
}

// Get handles GET /api/admin/users/:id.
func (h *AdminUserHandler) Get(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err, "Internal server error")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

// UpdateRole handles PATCH /api/admin/users/:id.
func (h *AdminUserHandler) UpdateRole(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return badRequest(c, "Valid role (user or admin) is required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	id := c.Param("id")
	if err := h.Users.UpdateRole(ctx, id, role); err != nil {
		return respondError(c, err, "Internal server error")
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err, "Internal server error")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u, "message": "User role updated to " + string(role)})
}

// Delete handles DELETE /api/admin/users/:id. Rentals, ledger rows and
// refresh tokens go with the user.
func (h *AdminUserHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if self, _ := getUserID(c); self == id {
		return badRequest(c, "Cannot delete your own account")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.Delete(ctx, id); err != nil {
		return respondError(c, err, "Internal server error")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "User deleted successfully"})
}

// AddCredits handles POST /api/admin/add-credits.
func (h *AdminUserHandler) AddCredits(c echo.Context) error {
	var req addCreditsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "User ID and credits amount are required")
	}
	if req.Credits <= 0 {
		return badRequest(c, "Credits must be a positive number")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, req.UserID)
	if err != nil {
		return respondError(c, err, "Internal server error")
	}
	bal, err := h.Ledger.Grant(ctx, u.ID, req.Credits, strings.TrimSpace(req.Reason))
	if err != nil {
		return respondError(c, err, "Internal server error")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"userId":     u.ID,
		"newBalance": bal,
		"message":    fmt.Sprintf("Successfully added %d credits to %s", req.Credits, u.Name),
	})
}

// CreateAdmin handles POST /api/admin/create-admin. The route is public
// until the first admin exists; after that the caller must hold an admin
// token.
func (h *AdminUserHandler) CreateAdmin(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	n, err := h.Users.CountAdmins(ctx)
	if err != nil {
		return respondError(c, err, "Internal server error")
	}
	if n > 0 && !h.bearerIsAdmin(ctx, c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Admin access required"})
	}

	var req validation.Signup
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := validation.ValidateSignup(&req); err != nil {
		return respondError(c, err, "")
	}
	u, err := h.Accounts.Register(ctx, service.NewAccount{
		Username: req.Username, Email: req.Email, Mobile: req.Mobile, Password: req.Password, Name: req.Name,
	}, model.RoleAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "Username or email already exists"})
		}
		return respondError(c, err, "Internal server error")
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "user": u, "message": "Admin user created successfully"})
}

// bearerIsAdmin checks the stored role of the token's user, so a demoted
// admin loses the right before the token expires.
func (h *AdminUserHandler) bearerIsAdmin(ctx context.Context, c echo.Context) bool {
	raw, ok := middleware.BearerToken(c)
	if !ok {
		return false
	}
	claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, raw)
	if err != nil || claims.Role != string(model.RoleAdmin) {
		return false
	}
	u, err := h.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			log.WithError(err).Warn("admin role lookup failed")
		}
		return false
	}
	return u.IsAdmin()
}
