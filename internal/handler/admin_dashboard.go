package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/umbrella-rental/internal/repository"
)

// recentLimit is how many recent rows of each kind the dashboard shows.
const recentLimit = 5

// DashboardHandler renders the admin overview.
type DashboardHandler struct {
	Stats     *repository.DashboardRepo
	Users     *repository.UserRepo
	Umbrellas *repository.UmbrellaRepo
	Rentals   *repository.RentalRepo
}

func NewDashboardHandler(s *repository.DashboardRepo, u *repository.UserRepo, um *repository.UmbrellaRepo, r *repository.RentalRepo) *DashboardHandler {
	return &DashboardHandler{Stats: s, Users: u, Umbrellas: um, Rentals: r}
}

// Get handles GET /api/admin/dashboard.
func (h *DashboardHandler) Get(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	stats, err := h.Stats.Stats(ctx)
	if err != nil {
		return respondError(c, err, "Dashboard API error")
	}
	users, err := h.Users.Recent(ctx, recentLimit)
	if err != nil {
		return respondError(c, err, "Dashboard API error")
	}
	umbrellas, err := h.Umbrellas.Recent(ctx, recentLimit)
	if err != nil {
		return respondError(c, err, "Dashboard API error")
	}
	rentals, err := h.Rentals.Recent(ctx, recentLimit)
	if err != nil {
		return respondError(c, err, "Dashboard API error")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":         true,
		"stats":           stats,
		"recentUsers":     users,
		"recentUmbrellas": umbrellas,
		"recentRentals":   rentals,
	})
}
