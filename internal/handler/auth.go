package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/umbrella-rental/internal/config"
	"github.com/iliyamo/umbrella-rental/internal/middleware"
	"github.com/iliyamo/umbrella-rental/internal/model"
	"github.com/iliyamo/umbrella-rental/internal/repository"
	"github.com/iliyamo/umbrella-rental/internal/service"
	"github.com/iliyamo/umbrella-rental/internal/utils"
	"github.com/iliyamo/umbrella-rental/internal/validation"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	Accounts *service.AccountService
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, a *service.AccountService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Accounts: a}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"` // username, email or mobile
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

// issue creates an access/refresh pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User, msg string) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.Store(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		Success: true,
		Message: msg,
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Signup creates a user account with the signup credit grant and returns
// a token pair.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req validation.Signup
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := validation.ValidateSignup(&req); err != nil {
		return respondError(c, err, "")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Accounts.Register(ctx, service.NewAccount{
		Username: req.Username, Email: req.Email, Mobile: req.Mobile, Password: req.Password, Name: req.Name,
	}, model.RoleUser)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "Username, email, or mobile number already exists"})
		}
		return respondError(c, err, "Failed to create user")
	}
	resp, err := h.issue(ctx, u, "User registered successfully")
	if err != nil {
		return respondError(c, err, "issue tokens failed")
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login accepts a username, email or mobile number with a password.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ident := validation.NormalizeLogin(req.Username)
	if ident == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByLogin(ctx, ident, validation.NormalizeMobile(ident))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found. Please sign up first."})
		}
		return respondError(c, err, "query failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid password"})
	}
	resp, err := h.issue(ctx, u, "Login successful")
	if err != nil {
		return respondError(c, err, "issue tokens failed")
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh spends a refresh token and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := dbCtx(c)
	defer cancel()

	userID, err := h.Tokens.Consume(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return respondError(c, err, "refresh failed")
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return respondError(c, err, "load user failed")
	}
	resp, err := h.issue(ctx, u, "")
	if err != nil {
		return respondError(c, err, "issue tokens failed")
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the bearer's user when only an access token is present.
func (h *AuthHandler) Logout(c echo.Context) error {
	var uid string
	if raw, ok := middleware.BearerToken(c); ok {
		if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, raw); err == nil {
			uid = claims.UserID
		}
	}
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := dbCtx(c)
	defer cancel()

	switch {
	case refreshToken != "":
		if _, err := h.Tokens.Consume(ctx, utils.HashRefreshRaw(refreshToken)); err != nil {
			if errors.Is(err, repository.ErrRefreshInvalid) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
			}
			return respondError(c, err, "logout failed")
		}
	case uid != "":
		if err := h.Tokens.RevokeAll(ctx, uid); err != nil {
			return respondError(c, err, "logout failed")
		}
	default:
		return badRequest(c, "provide Authorization header or refresh_token")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Logged out successfully"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err, "load user failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

// CheckUser reports whether a username, email or mobile is already taken.
func (h *AuthHandler) CheckUser(c echo.Context) error {
	username := strings.TrimSpace(c.QueryParam("username"))
	email := strings.ToLower(strings.TrimSpace(c.QueryParam("email")))
	mobile := validation.NormalizeMobile(c.QueryParam("mobile"))
	if username == "" && email == "" && mobile == "" {
		return badRequest(c, "username, email or mobile is required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	taken, err := h.Users.Taken(ctx, username, email, mobile)
	if err != nil {
		return respondError(c, err, "check failed")
	}
	available := true
	for _, t := range taken {
		if t {
			available = false
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "taken": taken, "available": available})
}
