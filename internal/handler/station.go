package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/umbrella-rental/internal/model"
	"github.com/iliyamo/umbrella-rental/internal/repository"
)

// BrowseHandler serves the public umbrella and station views. Station
// counts are recomputed on every call and never cached.
type BrowseHandler struct {
	Umbrellas *repository.UmbrellaRepo
	Stations  *repository.StationRepo
}

func NewBrowseHandler(u *repository.UmbrellaRepo, s *repository.StationRepo) *BrowseHandler {
	return &BrowseHandler{Umbrellas: u, Stations: s}
}

// ListUmbrellas handles GET /api/umbrellas?status=&location=.
func (h *BrowseHandler) ListUmbrellas(c echo.Context) error {
	var f repository.UmbrellaFilter
	if s := c.QueryParam("status"); s != "" {
		st, err := model.ParseUmbrellaStatus(s)
		if err != nil {
			return badRequest(c, "Invalid status")
		}
		f.Status = st
	}
	f.Location = strings.TrimSpace(c.QueryParam("location"))

	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Umbrellas.List(ctx, f)
	if err != nil {
		return respondError(c, err, "Failed to fetch umbrellas")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "umbrellas": list, "count": len(list)})
}

// ListStations handles GET /api/stations?location=.
func (h *BrowseHandler) ListStations(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Stations.List(ctx, strings.TrimSpace(c.QueryParam("location")))
	if err != nil {
		return respondError(c, err, "Failed to fetch stations")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "stations": list, "count": len(list)})
}

// GetStation handles GET /api/stations/:id.
func (h *BrowseHandler) GetStation(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	st, err := h.Stations.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrUmbrellaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Station not found"})
		}
		return respondError(c, err, "Failed to fetch station")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "station": st})
}

// StationSummary handles GET /api/stations/summary.
func (h *BrowseHandler) StationSummary(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	counts, err := h.Stations.ByLocation(ctx)
	if err != nil {
		return respondError(c, err, "Failed to fetch station summary")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "locations": counts})
}

// StationQR handles GET /api/stations/qr?id= and returns the payload a
// station QR code encodes.
func (h *BrowseHandler) StationQR(c echo.Context) error {
	id := strings.TrimSpace(c.QueryParam("id"))
	if id == "" {
		return badRequest(c, "Station ID is required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	st, err := h.Stations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUmbrellaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Station not found"})
		}
		return respondError(c, err, "Failed to generate QR data")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"qr": echo.Map{
			"stationId":   st.ID,
			"stationName": st.Name,
			"location":    st.Location,
			"type":        "umbrella_station",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}
