package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/umbrella-rental/internal/database"
	"github.com/iliyamo/umbrella-rental/internal/model"
	"github.com/iliyamo/umbrella-rental/internal/repository"
)

// AdminUmbrellaHandler manages umbrella inventory.
type AdminUmbrellaHandler struct {
	DB        *sql.DB
	Umbrellas *repository.UmbrellaRepo
	Stations  *repository.StationRepo
	Dashboard *repository.DashboardRepo
}

func NewAdminUmbrellaHandler(db *sql.DB) *AdminUmbrellaHandler {
	return &AdminUmbrellaHandler{
		DB:        db,
		Umbrellas: repository.NewUmbrellaRepo(db),
		Stations:  repository.NewStationRepo(db),
		Dashboard: repository.NewDashboardRepo(db),
	}
}

type createUmbrellaReq struct {
	Description string `json:"description"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	Quantity    *int   `json:"quantity"`
}

type updateUmbrellaReq struct {
	Description *string `json:"description"`
	Location    *string `json:"location"`
	Status      *string `json:"status"`
	Inventory   *int    `json:"inventory"`
}

// parseAdminStatus accepts the statuses an admin may set by hand.
func parseAdminStatus(s string) (model.UmbrellaStatus, bool) {
	st := model.UmbrellaStatus(s)
	return st, st == model.UmbrellaAvailable || st == model.UmbrellaRented
}

// List handles GET /api/admin/umbrellas?status=&location=&search=.
func (h *AdminUmbrellaHandler) List(c echo.Context) error {
	f := repository.UmbrellaFilter{
		Location: strings.TrimSpace(c.QueryParam("location")),
		Search:   strings.TrimSpace(c.QueryParam("search")),
	}
	if s := c.QueryParam("status"); s != "" {
		st, err := model.ParseUmbrellaStatus(s)
		if err != nil {
			return badRequest(c, "Invalid status")
		}
		f.Status = st
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Umbrellas.List(ctx, f)
	if err != nil {
		return respondError(c, err, "Internal server error")
	}
	stats, err := h.Dashboard.Stats(ctx)
	if err != nil {
		return respondError(c, err, "Internal server error")
	}
	byLoc, err := h.Stations.ByLocation(ctx)
	if err != nil {
		return respondError(c, err, "Internal server error")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"umbrellas":  list,
		"count":      len(list),
		"stats":      stats.Umbrellas,
		"byLocation": byLoc,
	})
}

// Create handles POST /api/admin/umbrellas. Posting an existing
// (description, location) pair adds to its inventory.
func (h *AdminUmbrellaHandler) Create(c echo.Context) error {
	var req createUmbrellaReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Description = strings.TrimSpace(req.Description)
	req.Location = strings.TrimSpace(req.Location)
	if req.Description == "" || req.Location == "" || req.Status == "" {
		return badRequest(c, "All fields are required")
	}
	status, ok := parseAdminStatus(req.Status)
	if !ok {
		return badRequest(c, "Status must be available or rented")
	}
	qty := 1
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return badRequest(c, "Quantity must be a positive number")
		}
		qty = *req.Quantity
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	var (
		u       model.Umbrella
		created bool
	)
	err := database.WithTx(ctx, h.DB, func(tx *sql.Tx) error {
		var err error
		u, created, err = h.Umbrellas.CreateOrRestockTx(ctx, tx, req.Description, req.Location, status, qty)
		return err
	})
	if err != nil {
		return respondError(c, err, "Internal server error")
	}
	msg := fmt.Sprintf("Inventory updated successfully! Added %d umbrellas to %s. Total inventory: %d", qty, u.Description, u.Inventory)
	if created {
		msg = fmt.Sprintf("Umbrella created successfully! Added %d umbrellas to %s at %s", qty, u.Description, u.Location)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "umbrella": u, "message": msg})
}

// Update handles PUT /api/admin/umbrellas/:id.
func (h *AdminUmbrellaHandler) Update(c echo.Context) error {
	var req updateUmbrellaReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	var upd repository.UmbrellaUpdate
	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		if d == "" {
			return badRequest(c, "Description cannot be empty")
		}
		upd.Description = &d
	}
	if req.Location != nil {
		l := strings.TrimSpace(*req.Location)
		if l == "" {
			return badRequest(c, "Location cannot be empty")
		}
		upd.Location = &l
	}
	if req.Status != nil {
		st, ok := parseAdminStatus(*req.Status)
		if !ok {
			return badRequest(c, "Status must be available or rented")
		}
		upd.Status = &st
	}
	if req.Inventory != nil {
		if *req.Inventory < 0 {
			return badRequest(c, "Inventory cannot be negative")
		}
		upd.Inventory = req.Inventory
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Umbrellas.Update(ctx, c.Param("id"), upd)
	if err != nil {
		return respondError(c, err, "Internal server error")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "umbrella": u, "message": "Umbrella updated successfully"})
}

// Delete handles DELETE /api/admin/umbrellas/:id.
func (h *AdminUmbrellaHandler) Delete(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	err := database.WithTx(ctx, h.DB, func(tx *sql.Tx) error {
		return h.Umbrellas.DeleteTx(ctx, tx, c.Param("id"))
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return badRequest(c, "Cannot delete umbrella that is currently rented")
		}
		return respondError(c, err, "Internal server error")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Umbrella deleted successfully"})
}
