package ratelimit

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"fanpulse/config"
	"fanpulse/internal/domain/constants"
	"fanpulse/internal/domain/service"
)

// noopLimiter admits everything when the limiter is switched off.
type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string) (*service.RateLimitDecision, error) {
	return &service.RateLimitDecision{Allowed: true, Remaining: -1}, nil
}

// LimiterParams holds dependencies for RateLimiter, injected by Fx
type LimiterParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewRateLimiter creates a RateLimiter based on configuration
func NewRateLimiter(params LimiterParams) (service.RateLimiter, error) {
	cfg := params.Config.RateLimit
	logger := params.Logger

	if cfg == nil || !cfg.Enabled {
		logger.Info("Rate limiting disabled, using no-op limiter")

		return noopLimiter{}, nil
	}

	switch cfg.Store {
	case constants.RateLimitStoreMemory, "":
		logger.Info("Using in-memory rate limiter",
			slog.Int64("requests_per_window", cfg.RequestsPerWindow),
			slog.Duration("window", cfg.Window),
		)

		return NewBucketLimiter(cfg), nil

	case constants.RateLimitStoreRedis:
		if params.Config.Redis == nil || params.Config.Redis.Addr == "" {
			return nil, errors.New("redis address is required for redis rate limit store")
		}
		logger.Info("Using redis rate limiter",
			slog.String("addr", params.Config.Redis.Addr),
			slog.Int64("requests_per_window", cfg.RequestsPerWindow),
			slog.Duration("window", cfg.Window),
		)

		client := redis.NewClient(&redis.Options{
			Addr:     params.Config.Redis.Addr,
			Password: params.Config.Redis.Password,
			DB:       params.Config.Redis.DB,
		})

		// Close the client together with the app.
		params.Lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				logger.Info("Closing rate limiter redis client")

				return client.Close()
			},
		})

		return NewRedisLimiter(client, cfg), nil

	default:
		return nil, errors.Errorf("unknown rate limit store: %s", cfg.Store)
	}
}

// Module provides the rate limiter FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewRateLimiter),
)
