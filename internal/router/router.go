// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auth-gateway/internal/config"
	"github.com/iliyamo/auth-gateway/internal/handler"
	"github.com/iliyamo/auth-gateway/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check, used by load balancers
// and monitoring to verify that the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the authentication endpoints. Unauthenticated
// operations live under /v1/auth and carry the Redis token-bucket
// rate limiter, guarding login and the reset endpoints against
// brute force at the transport layer. Protected endpoints live under
// /v1 behind the JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group("/v1/auth")
	g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/token/refresh", a.Refresh)
	g.POST("/password/reset/request", a.RequestPasswordReset)
	g.GET("/password/reset/validate", a.ValidateResetToken)
	g.POST("/password/reset/confirm", a.ConfirmPasswordReset)

	p := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	p.POST("/auth/logout", a.Logout)
}

// RegisterMenus wires the menu resolution endpoint. Responses are
// cached in Redis per user and route; the resolver itself always
// reads through to the database.
func RegisterMenus(e *echo.Echo, m *handler.MenuHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.GET("/menus", m.Menus, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
}

// RegisterAdmin wires the management surface behind the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole("ADMIN"))

	g.GET("/roles", a.ListRoles)
	g.POST("/roles", a.CreateRole)
	g.PUT("/roles/:roleId", a.UpdateRole)
	g.DELETE("/roles/:roleId", a.DeleteRole)
	g.POST("/roles/:roleId/resources/:resourceId", a.MapResourceToRole)
	g.DELETE("/roles/:roleId/resources/:resourceId", a.UnmapResourceFromRole)

	g.GET("/resources", a.ListMenuResources)
	g.POST("/resources", a.CreateMenuResource)
	g.PUT("/resources/:resourceId", a.UpdateMenuResource)
	g.DELETE("/resources/:resourceId", a.DeleteMenuResource)

	g.GET("/users", a.ListUsers)
	g.PUT("/users/:username/activate", a.ActivateUser)
	g.PUT("/users/:username/deactivate", a.DeactivateUser)
	g.PUT("/users/:username/unlock", a.UnlockUser)
	g.POST("/users/:username/roles/:roleId", a.AssignRole)
	g.DELETE("/users/:username/roles/:roleId", a.RemoveRole)
}
