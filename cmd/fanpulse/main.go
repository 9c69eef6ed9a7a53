package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"fanpulse/config"
	"fanpulse/internal/delivery"
	"fanpulse/internal/delivery/http"
	httpmiddleware "fanpulse/internal/delivery/http/middleware"
	"fanpulse/internal/delivery/http/router/handler"
	deliverymiddleware "fanpulse/internal/delivery/middleware"
	"fanpulse/internal/infra/auth"
	logs "fanpulse/internal/infra/log"
	"fanpulse/internal/infra/persistence/postgres"
	"fanpulse/internal/infra/pubsub"
	"fanpulse/internal/infra/ratelimit"
	"fanpulse/internal/usecase"
	"fanpulse/internal/usecase/impl"

	"go.uber.org/fx"
)

// tokenCleanupInterval is how often expired ledger records are purged.
const tokenCleanupInterval = time.Hour

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
			startTokenCleanup,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			postgres.New,
		),
		ratelimit.Module,
		pubsub.Module,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewUserRepository,
			postgres.NewRefreshTokenRepository,
			postgres.NewTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewJWTService,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAuthService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			httpmiddleware.NewAuthMiddleware,
			httpmiddleware.NewErrorMiddleware,
			httpmiddleware.NewRateLimitMiddleware,
			deliverymiddleware.NewRequestIDMiddleware,
			deliverymiddleware.NewLoggerMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

// startTokenCleanup purges expired refresh token records on a fixed interval.
func startTokenCleanup(lc fx.Lifecycle, authUsecase usecase.AuthUsecase, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(tokenCleanupInterval)
				defer ticker.Stop()

				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if err := authUsecase.CleanupExpiredTokens(ctx); err != nil {
							logger.Error("Expired token cleanup failed", slog.Any("error", err))
						}
					}
				}
			}()

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()

			return nil
		},
	})
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
