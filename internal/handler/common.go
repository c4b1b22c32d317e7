package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/umbrella-rental/internal/middleware"
	"github.com/iliyamo/umbrella-rental/internal/model"
	"github.com/iliyamo/umbrella-rental/internal/repository"
	"github.com/iliyamo/umbrella-rental/internal/service"
	"github.com/iliyamo/umbrella-rental/internal/validation"
)

// dbTimeout bounds the store work of one request.
const dbTimeout = 5 * time.Second

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// getUserID returns the authenticated user id set by JWTAuth.
func getUserID(c echo.Context) (string, error) {
	id, ok := c.Get(middleware.CtxUserID).(string)
	if !ok || id == "" {
		return "", errors.New("user id not found in context")
	}
	return id, nil
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get(middleware.CtxRole).(string)
	return role == string(model.RoleAdmin)
}

// targetUser picks the user a user-scoped endpoint acts on. Only admins
// may name someone other than themselves.
func targetUser(c echo.Context, requested string) (string, error) {
	self, err := getUserID(c)
	if err != nil {
		return "", err
	}
	if requested == "" || requested == self {
		return self, nil
	}
	if !isAdmin(c) {
		return "", repository.ErrForbidden
	}
	return requested, nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// respondError maps domain errors to their HTTP status. Anything unknown
// is logged and answered with 500 and fallback.
func respondError(c echo.Context, err error, fallback string) error {
	var (
		verr *validation.Error
		werr *service.WindowError
		ierr *service.InsufficientCreditsError
	)
	switch {
	case errors.As(err, &verr):
		return badRequest(c, verr.Msg)
	case errors.As(err, &werr):
		return badRequest(c, werr.Msg)
	case errors.As(err, &ierr):
		return badRequest(c, ierr.Error())
	case errors.Is(err, service.ErrUmbrellaNotAvailable):
		return badRequest(c, "Umbrella is not available")
	case errors.Is(err, service.ErrInvalidAmount):
		return badRequest(c, "Amount must be a positive number")
	case errors.Is(err, service.ErrNoFields):
		return badRequest(c, "No fields to update")
	case errors.Is(err, service.ErrWrongPassword):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Old password incorrect"})
	case errors.Is(err, service.ErrRentalNotActive), errors.Is(err, repository.ErrRentalNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Active rental not found"})
	case errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	case errors.Is(err, repository.ErrUmbrellaNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Umbrella not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "Resource already exists"})
	}
	log.WithError(err).WithFields(log.Fields{"path": c.Path(), "method": c.Request().Method}).Error(fallback)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
}

// ErrorHandler renders framework errors (unknown routes, bad binds) as
// {"error": ...} JSON.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = http.StatusText(code)
		}
	} else {
		log.WithError(err).WithField("path", c.Request().URL.Path).Error("unhandled error")
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"error": msg})
}
