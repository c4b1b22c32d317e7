package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/umbrella-rental/internal/handler"
	"github.com/iliyamo/umbrella-rental/internal/middleware"
	"github.com/iliyamo/umbrella-rental/internal/model"
)

// UserHandlers groups the handlers behind a signed-in user.
type UserHandlers struct {
	Profile *handler.ProfileHandler
	Rentals *handler.RentalHandler
	Credits *handler.CreditHandler
}

// RegisterUser registers the /api endpoints that act on the token's
// subject. Both roles are accepted; admins may name another user.
func RegisterUser(e *echo.Echo, h UserHandlers, jwtSecret string) {
	g := e.Group("/api",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)

	g.GET("/users/profile", h.Profile.Get)
	g.PUT("/users/profile", h.Profile.Update)

	g.GET("/rentals", h.Rentals.List)
	g.POST("/rentals", h.Rentals.Create)
	g.PATCH("/rentals/:id/return", h.Rentals.Return)
	g.POST("/rentals/:id/return", h.Rentals.Return)
	g.GET("/rentals/auto-update", h.Rentals.ListOverdue)
	g.POST("/rentals/auto-update", h.Rentals.ExpireOverdue)
	g.GET("/history", h.Rentals.History)

	g.GET("/credits", h.Credits.Balance)
	g.POST("/credits", h.Credits.TopUp)
	g.GET("/credits/transactions", h.Credits.Transactions)
}
