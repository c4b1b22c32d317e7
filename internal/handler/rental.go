package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/umbrella-rental/internal/model"
	"github.com/iliyamo/umbrella-rental/internal/service"
)

// RentalHandler exposes the rent/return lifecycle.
type RentalHandler struct {
	Rentals *service.RentalService
}

func NewRentalHandler(s *service.RentalService) *RentalHandler {
	return &RentalHandler{Rentals: s}
}

type createRentalReq struct {
	UmbrellaID string     `json:"umbrellaId" validate:"required"`
	StartTime  *time.Time `json:"startTime"`
	EndTime    *time.Time `json:"endTime"`
	UserID     string     `json:"userId"`
}

type returnRentalReq struct {
	ReturnTime *time.Time `json:"returnTime"`
}

// List handles GET /api/rentals?status=&userId=.
func (h *RentalHandler) List(c echo.Context) error {
	uid, err := targetUser(c, c.QueryParam("userId"))
	if err != nil {
		return respondError(c, err, "Failed to fetch rentals")
	}
	var status model.RentalStatus
	if s := c.QueryParam("status"); s != "" {
		if status, err = model.ParseRentalStatus(s); err != nil {
			return badRequest(c, "Invalid status")
		}
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Rentals.ListForUser(ctx, uid, status)
	if err != nil {
		return respondError(c, err, "Failed to fetch rentals")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "rentals": list, "count": len(list)})
}

// Create handles POST /api/rentals.
func (h *RentalHandler) Create(c echo.Context) error {
	var req createRentalReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.UmbrellaID = strings.TrimSpace(req.UmbrellaID)
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Umbrella ID is required")
	}
	uid, err := targetUser(c, req.UserID)
	if err != nil {
		return respondError(c, err, "Failed to create rental")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	rt, err := h.Rentals.Create(ctx, service.CreateRentalInput{
		UserID:     uid,
		UmbrellaID: req.UmbrellaID,
		Start:      req.StartTime,
		End:        req.EndTime,
	})
	if err != nil {
		return respondError(c, err, "Failed to create rental")
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "rental": rt, "message": "Umbrella rented successfully"})
}

// Return handles PATCH and POST /api/rentals/:id/return.
func (h *RentalHandler) Return(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return badRequest(c, "Invalid rental id")
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req returnRentalReq
	// the body is optional; chunked requests report ContentLength -1
	if body := c.Request().Body; body != nil && body != http.NoBody {
		if err := c.Bind(&req); err != nil && !errors.Is(err, io.EOF) {
			return badRequest(c, "invalid body")
		}
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	rt, err := h.Rentals.Return(ctx, service.ReturnRentalInput{
		RentalID:     id,
		ActorID:      uid,
		ActorIsAdmin: isAdmin(c),
		ReturnedAt:   req.ReturnTime,
	})
	if err != nil {
		return respondError(c, err, "Failed to return umbrella")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "rental": rt, "message": "Umbrella returned successfully"})
}

// ExpireOverdue handles POST /api/rentals/auto-update.
func (h *RentalHandler) ExpireOverdue(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	expired, err := h.Rentals.ExpireOverdue(ctx, h.Rentals.Now())
	if err != nil {
		return respondError(c, err, "Failed to update expired rentals")
	}
	msg := "No expired rentals found"
	if n := len(expired); n > 0 {
		msg = "Updated " + strconv.Itoa(n) + " expired rentals"
	} else {
		expired = []model.Rental{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"message":        msg,
		"updatedCount":   len(expired),
		"updatedRentals": expired,
	})
}

// ListOverdue handles GET /api/rentals/auto-update.
func (h *RentalHandler) ListOverdue(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Rentals.ListExpired(ctx, h.Rentals.Now())
	if err != nil {
		return respondError(c, err, "Failed to fetch expired rentals")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "expiredRentals": list, "count": len(list)})
}

// History handles GET /api/history.
func (h *RentalHandler) History(c echo.Context) error {
	uid, err := targetUser(c, c.QueryParam("userId"))
	if err != nil {
		return respondError(c, err, "Failed to fetch rental history")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Rentals.History(ctx, uid)
	if err != nil {
		return respondError(c, err, "Failed to fetch rental history")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "history": list, "count": len(list)})
}
