package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/umbrella-rental/internal/config"
	"github.com/iliyamo/umbrella-rental/internal/handler"
	"github.com/iliyamo/umbrella-rental/internal/middleware"
	"github.com/iliyamo/umbrella-rental/internal/model"
)

// AdminHandlers groups the back office handlers.
type AdminHandlers struct {
	Users     *handler.AdminUserHandler
	Umbrellas *handler.AdminUmbrellaHandler
	Dashboard *handler.DashboardHandler
}

// RegisterAdmin registers /api/admin. create-admin does its own
// authorisation so the first admin can be bootstrapped. Every other route
// needs the admin role; writes purge the response cache and the dashboard
// is served from it.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, jwtSecret string, cacheCfg config.CacheConfig, rdb *redis.Client) {
	purge := middleware.PurgeCache(cacheCfg, rdb)

	e.POST("/api/admin/create-admin", h.Users.CreateAdmin, purge)

	g := e.Group("/api/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/dashboard", h.Dashboard.Get, middleware.NewRedisCache(cacheCfg, rdb))

	g.GET("/users", h.Users.List)
	g.GET("/users/:id", h.Users.Get)
	g.PATCH("/users/:id", h.Users.UpdateRole, purge)
	g.DELETE("/users/:id", h.Users.Delete, purge)
	g.POST("/add-credits", h.Users.AddCredits, purge)

	g.GET("/umbrellas", h.Umbrellas.List)
	g.POST("/umbrellas", h.Umbrellas.Create, purge)
	g.PUT("/umbrellas/:id", h.Umbrellas.Update, purge)
	g.DELETE("/umbrellas/:id", h.Umbrellas.Delete, purge)
}
