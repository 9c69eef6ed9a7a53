package middleware

import (
	"strings"

	"fanpulse/internal/delivery/http/response"
	"fanpulse/internal/domain/service"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware provides middleware for access token authentication.
type AuthMiddleware struct {
	tokenSvc service.TokenService
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

// Authenticate validates the bearer access token when one is present and
// attaches the caller's user ID to the context. It never rejects: a missing,
// malformed, expired, or wrong-type token simply leaves the request without a
// principal, and RequireAuth decides whether that matters for the route.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return next(c)
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return next(c)
		}

		claims, err := m.tokenSvc.DecodeToken(tokenString)
		if err != nil {
			return next(c)
		}

		// Refresh tokens never authorize API calls, however fresh.
		if claims.Type != service.TokenTypeAccess {
			return next(c)
		}

		c.Set("userID", claims.UserID)

		return next(c)
	}
}

// RequireAuth rejects requests that carry no authenticated principal. The 401
// body is identical for every failure mode so callers learn nothing about why
// their credential was refused. It must be used AFTER Authenticate.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Get("userID") == nil {
			return response.MissingPrincipal(c, "Full authentication is required to access this resource")
		}

		return next(c)
	}
}
