// Package router maps URLs onto handlers.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parkshare/internal/handler"
	"github.com/iliyamo/parkshare/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterAuth registers account endpoints.  Register, login and refresh
// are open; logout and me need an access token.  mw runs on every route,
// after authentication where there is one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", mw...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1", append([]echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret)}, mw...)...)
	auth.POST("/auth/logout", a.Logout)
	auth.GET("/me", a.Me)
}
