// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "fanpulse/internal/delivery/context"
	"fanpulse/internal/domain/entity"
	domainerrors "fanpulse/internal/domain/errors"
	"fanpulse/internal/domain/repository"
	"fanpulse/internal/domain/service"
	"fanpulse/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface.
type authService struct {
	txManager        repository.TransactionManager
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	hasher           service.PasswordHasher
	tokenService     service.TokenService
	publisher        service.EventPublisher
	logger           *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Hasher           service.PasswordHasher
	TokenService     service.TokenService
	Publisher        service.EventPublisher
	Logger           *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		txManager:        params.TxManager,
		userRepo:         params.UserRepo,
		refreshTokenRepo: params.RefreshTokenRepo,
		hasher:           params.Hasher,
		tokenService:     params.TokenService,
		publisher:        params.Publisher,
		logger:           params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register orchestrates the complete account registration process and opens
// the new user's first session.
func (srv *authService) Register(ctx context.Context, input usecase.RegisterInput) (*usecase.TokenPairOutput, error) {
	srv.log(ctx).Info("Starting registration", slog.String("email", input.Email))

	// 1. Hash outside the transaction (bcrypt is CPU-bound). The hasher
	// enforces the strength policy before hashing.
	passwordHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Warn("Registration rejected", slog.String("email", input.Email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to hash password")
	}

	registeredUser := &entity.User{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: passwordHash,
	}

	var output *usecase.TokenPairOutput

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()
		refreshRepo := repoFactory.RefreshTokenRepo()

		// 2. Reject duplicate emails up front; the unique constraint is the
		// backstop for concurrent registrations.
		if _, findErr := userRepo.FindByEmail(ctx, input.Email); findErr == nil {
			return domainerrors.ErrUserAlreadyExists
		} else if !errors.Is(findErr, repository.ErrUserNotFound) {
			return errors.Wrap(findErr, "failed to check existing email")
		}

		if createErr := userRepo.Create(ctx, registeredUser); createErr != nil {
			return errors.Wrap(createErr, "failed to create user")
		}

		// 3. The new account signs in immediately: the first session's pair
		// and its ledger record commit together with the user row.
		accessToken, refreshTokenString, genErr := srv.issueTokenPair(registeredUser.ID)
		if genErr != nil {
			return errors.Wrap(genErr, "failed to generate initial token pair")
		}

		if createErr := refreshRepo.CreateRefreshToken(ctx, &entity.RefreshToken{
			UserID:    registeredUser.ID,
			Token:     refreshTokenString,
			ExpiresAt: time.Now().Add(srv.tokenService.GetRefreshTokenDuration()),
		}); createErr != nil {
			return errors.Wrap(createErr, "failed to store initial refresh token")
		}

		output = &usecase.TokenPairOutput{
			AccessToken:  accessToken,
			RefreshToken: refreshTokenString,
			User:         registeredUser,
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Registration failed", slog.String("email", input.Email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute registration transaction")
	}

	srv.publishEvent(ctx, &service.AuthEvent{
		Type:   service.AuthEventRegistered,
		UserID: registeredUser.ID,
		Email:  registeredUser.Email,
	})

	srv.log(ctx).Debug("Registration completed", slog.Any("userID", registeredUser.ID))

	return output, nil
}

// Login verifies credentials and opens a new session.
func (srv *authService) Login(ctx context.Context, input usecase.LoginInput) (*usecase.TokenPairOutput, error) {
	srv.log(ctx).Debug("Starting login", slog.String("email", input.Email))

	user, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", err))

		if errors.Is(err, repository.ErrUserNotFound) {
			// Same error as a wrong password: the response must not reveal
			// whether the account exists.
			return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	// Check password outside any transaction (bcrypt is CPU-bound).
	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", domainerrors.ErrInvalidCredentials))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	accessToken, refreshTokenString, err := srv.issueTokenPair(user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate tokens")
	}

	if err := srv.refreshTokenRepo.CreateRefreshToken(ctx, &entity.RefreshToken{
		UserID:    user.ID,
		Token:     refreshTokenString,
		ExpiresAt: time.Now().Add(srv.tokenService.GetRefreshTokenDuration()),
	}); err != nil {
		srv.log(ctx).Error("Failed to store refresh token", slog.Any("userID", user.ID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to create refresh token during login")
	}

	srv.publishEvent(ctx, &service.AuthEvent{
		Type:   service.AuthEventLoginSucceeded,
		UserID: user.ID,
		Email:  user.Email,
	})

	srv.log(ctx).Debug("User logged in successfully", slog.Any("userID", user.ID))

	return &usecase.TokenPairOutput{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString,
		User:         user,
	}, nil
}

// Refresh rotates a refresh token: the presented token is consumed exactly
// once and a fresh pair takes its place. A token that was already consumed
// is treated as stolen, and every active session of the user is revoked.
func (srv *authService) Refresh(ctx context.Context, input usecase.RefreshInput) (*usecase.TokenPairOutput, error) {
	srv.log(ctx).Info("Attempting to rotate refresh token")

	// 1. Stateless checks: signature, expiry, and the type claim.
	claims, err := srv.tokenService.DecodeToken(input.RefreshToken)
	if err != nil {
		srv.log(ctx).Warn("Refresh rejected", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInvalidToken, "invalid refresh token")
	}
	if claims.Type != service.TokenTypeRefresh {
		srv.log(ctx).Warn("Refresh rejected: access token presented")

		return nil, errors.Wrap(domainerrors.ErrInvalidToken, "token is not a refresh token")
	}

	var (
		output          *usecase.TokenPairOutput
		reuseDetected   bool
		revokedSessions int
	)

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()
		refreshRepo := repoFactory.RefreshTokenRepo()

		// 2. The ledger must know the token. A signed token without a ledger
		// record is rejected outright.
		record, findErr := refreshRepo.FindRefreshTokenByToken(ctx, input.RefreshToken)
		if findErr != nil {
			if errors.Is(findErr, repository.ErrRefreshTokenNotFound) {
				return errors.Wrap(domainerrors.ErrInvalidToken, "refresh token not in ledger")
			}

			return errors.Wrap(findErr, "failed to find refresh token")
		}

		// 3. An already-consumed token is a reuse: revoke everything. The
		// callback returns nil so the revocation commits; the operation
		// itself still fails below.
		if record.Invalidated {
			count, revokeErr := refreshRepo.InvalidateRefreshTokensByUserID(ctx, record.UserID)
			if revokeErr != nil {
				return errors.Wrap(revokeErr, "failed to revoke sessions after reuse")
			}
			reuseDetected = true
			revokedSessions = count

			return nil
		}

		if !record.Active(time.Now()) {
			return errors.Wrap(domainerrors.ErrInvalidToken, "refresh token expired")
		}

		// 4. Consume the token. The flip is conditional, so a concurrent
		// rotation of the same token makes exactly one of us lose; the loser
		// follows the reuse path.
		if invErr := refreshRepo.InvalidateRefreshToken(ctx, input.RefreshToken); invErr != nil {
			if errors.Is(invErr, repository.ErrRefreshTokenAlreadyInvalidated) {
				count, revokeErr := refreshRepo.InvalidateRefreshTokensByUserID(ctx, record.UserID)
				if revokeErr != nil {
					return errors.Wrap(revokeErr, "failed to revoke sessions after reuse")
				}
				reuseDetected = true
				revokedSessions = count

				return nil
			}

			return errors.Wrap(invErr, "failed to invalidate refresh token")
		}

		user, userErr := userRepo.FindByID(ctx, record.UserID)
		if userErr != nil {
			return errors.Wrap(userErr, "failed to find user")
		}

		// 5. Issue the replacement pair and record the new session.
		accessToken, refreshTokenString, genErr := srv.issueTokenPair(user.ID)
		if genErr != nil {
			return errors.Wrap(genErr, "failed to generate new token pair")
		}

		if createErr := refreshRepo.CreateRefreshToken(ctx, &entity.RefreshToken{
			UserID:    user.ID,
			Token:     refreshTokenString,
			ExpiresAt: time.Now().Add(srv.tokenService.GetRefreshTokenDuration()),
		}); createErr != nil {
			return errors.Wrap(createErr, "failed to store rotated refresh token")
		}

		output = &usecase.TokenPairOutput{
			AccessToken:  accessToken,
			RefreshToken: refreshTokenString,
			User:         user,
		}

		return nil
	})

	if reuseDetected {
		// The reuse branches return nil from the callback so the revocation
		// commits. The security event goes out only after that commit.
		srv.log(ctx).Warn("Refresh token reuse detected, sessions revoked",
			slog.Any("userID", claims.UserID),
			slog.Int("revoked_sessions", revokedSessions),
		)
		srv.publishEvent(ctx, &service.AuthEvent{
			Type:            service.AuthEventRefreshTokenReuseDetected,
			UserID:          claims.UserID,
			RevokedSessions: revokedSessions,
		})

		return nil, errors.Wrap(domainerrors.ErrRefreshTokenReused, "refresh token reuse detected")
	}

	if err != nil {
		srv.log(ctx).Warn("Refresh failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute refresh transaction")
	}

	srv.log(ctx).Debug("Refresh token rotated", slog.Any("userID", output.User.ID))

	return output, nil
}

// Logout invalidates all of the user's active sessions.
func (srv *authService) Logout(ctx context.Context, userID uuid.UUID) error {
	srv.log(ctx).Info("Logging out", slog.Any("userID", userID))

	count, err := srv.refreshTokenRepo.InvalidateRefreshTokensByUserID(ctx, userID)
	if err != nil {
		srv.log(ctx).Error("Logout failed", slog.Any("userID", userID), slog.Any("error", err))

		return errors.Wrap(err, "failed to invalidate sessions")
	}

	srv.log(ctx).Debug("Logged out", slog.Any("userID", userID), slog.Int("sessions", count))

	return nil
}

// GetUser returns the account profile for an authenticated principal.
func (srv *authService) GetUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUserNotFound, "user lookup failed")
		}

		return nil, errors.Wrap(err, "failed to find user")
	}

	return user, nil
}

// CleanupExpiredTokens removes expired ledger records.
func (srv *authService) CleanupExpiredTokens(ctx context.Context) error {
	if err := srv.refreshTokenRepo.DeleteExpiredRefreshTokens(ctx); err != nil {
		return errors.Wrap(err, "failed to delete expired refresh tokens")
	}

	return nil
}

// issueTokenPair mints a new access/refresh pair for the user.
func (srv *authService) issueTokenPair(userID uuid.UUID) (string, string, error) {
	accessToken, err := srv.tokenService.GenerateAccessToken(userID)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to generate access token")
	}

	refreshToken, err := srv.tokenService.GenerateRefreshToken(userID)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to generate refresh token")
	}

	return accessToken, refreshToken, nil
}

// publishEvent sends an auth event without failing the calling operation.
func (srv *authService) publishEvent(ctx context.Context, event *service.AuthEvent) {
	event.RequestID = deliverycontext.GetRequestIDFromContext(ctx)
	event.OccurredAt = time.Now().UTC()

	if err := srv.publisher.PublishAuthEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish auth event",
			slog.String("event_type", string(event.Type)),
			slog.Any("error", err),
		)
	}
}
