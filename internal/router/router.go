// Package router wires handlers and middleware onto Echo routes.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/umbrella-rental/internal/handler"
	"github.com/iliyamo/umbrella-rental/internal/middleware"
	"github.com/iliyamo/umbrella-rental/internal/model"
)

// RegisterRoutes registers the liveness and readiness probes.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers /api/auth. Credential endpoints sit behind
// limiter; /me needs a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	g.POST("/signup", a.Signup, limiter)
	g.POST("/login", a.Login, limiter)
	g.POST("/refresh", a.Refresh, limiter)
	g.POST("/logout", a.Logout)
	g.GET("/check-user", a.CheckUser)
	g.GET("/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin))
}

// RegisterPublic registers the unauthenticated browse endpoints. Station
// views are computed per request and are not cached.
func RegisterPublic(e *echo.Echo, b *handler.BrowseHandler) {
	e.GET("/api/umbrellas", b.ListUmbrellas)
	e.GET("/api/stations", b.ListStations)
	e.GET("/api/stations/summary", b.StationSummary)
	e.GET("/api/stations/qr", b.StationQR)
	e.GET("/api/stations/:id", b.GetStation)
}
