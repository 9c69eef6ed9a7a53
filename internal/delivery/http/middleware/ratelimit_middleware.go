package middleware

import (
	"log/slog"
	"net"
	"strconv"
	"strings"

	"fanpulse/internal/delivery/http/response"
	"fanpulse/internal/domain/service"

	"github.com/labstack/echo/v4"
)

// RateLimitMiddleware guards the anonymous authentication endpoints with a
// per-client bucket. The client key is taken from the first X-Forwarded-For
// hop when present, which a direct caller can spoof; deployments that care
// must terminate at a trusted proxy that overwrites the header.
type RateLimitMiddleware struct {
	limiter service.RateLimiter
	logger  *slog.Logger
}

// NewRateLimitMiddleware creates a new rate limit middleware.
func NewRateLimitMiddleware(limiter service.RateLimiter, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// Limit consumes one token from the caller's bucket before the handler runs.
func (m *RateLimitMiddleware) Limit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := clientKey(c)

		decision, err := m.limiter.Allow(c.Request().Context(), key)
		if err != nil {
			// Limiter store outage. Log loudly and let the request through
			// rather than locking every client out.
			m.logger.Error("Rate limiter unavailable, request allowed unthrottled",
				slog.String("client_key", key),
				slog.Any("error", err),
			)

			return next(c)
		}

		if !decision.Allowed {
			m.logger.Warn("Rate limit exceeded",
				slog.String("client_key", key),
				slog.String("path", c.Request().URL.Path),
			)

			return response.TooManyRequests(c, "Request rate limit exceeded. Try again later.", decision.RetryAfter)
		}

		if decision.Remaining >= 0 {
			c.Response().Header().Set("X-Rate-Limit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		}

		return next(c)
	}
}

// clientKey identifies the caller for bucket lookup.
func clientKey(c echo.Context) string {
	if forwarded := c.Request().Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
	if err != nil {
		return c.Request().RemoteAddr
	}

	return host
}
