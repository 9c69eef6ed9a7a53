// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"fanpulse/internal/delivery/http/middleware"
	"fanpulse/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler         *handler.AuthHandler
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler         *handler.AuthHandler
	authMiddleware      *middleware.AuthMiddleware
	rateLimitMiddleware *middleware.RateLimitMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:         params.AuthHandler,
		authMiddleware:      params.AuthMiddleware,
		rateLimitMiddleware: params.RateLimitMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Every route sees Authenticate so a valid token always attaches a
	// principal; only the protected routes add RequireAuth.
	e.Use(r.authMiddleware.Authenticate)

	// Anonymous auth routes. Only the guessable ones are rate limited:
	// refresh already requires possession of a valid token.
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/register", r.authHandler.Register, r.rateLimitMiddleware.Limit)
		authGroup.POST("/login", r.authHandler.Login, r.rateLimitMiddleware.Limit)
		authGroup.POST("/refresh", r.authHandler.Refresh)
		authGroup.POST("/logout", r.authHandler.Logout, r.authMiddleware.RequireAuth)
	}

	// User routes that require authentication
	userGroup := e.Group("/users")
	userGroup.Use(r.authMiddleware.RequireAuth)
	{
		userGroup.GET("/me", r.authHandler.Me)
	}
}
