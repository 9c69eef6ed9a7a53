package impl

import (
	"context"
	"testing"
	"time"

	"fanpulse/internal/domain/entity"
	domainerrors "fanpulse/internal/domain/errors"
	"fanpulse/internal/domain/repository"
	"fanpulse/internal/domain/service"
	mockRepo "fanpulse/internal/mocks/repository"
	"fanpulse/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func refreshClaims(userID uuid.UUID) *service.TokenClaims {
	return &service.TokenClaims{
		UserID:    userID,
		Type:      service.TokenTypeRefresh,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour * 24 * 7),
	}
}

func activeLedgerRecord(userID uuid.UUID, token string) *entity.RefreshToken {
	return &entity.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(time.Hour * 24),
	}
}

func TestAuthService_Refresh_RotatesTokenPair(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	userID := uuid.New()
	user := &entity.User{ID: userID, Email: "test@example.com"}
	oldToken := "old_refresh_token"

	fx.tokenService.EXPECT().DecodeToken(oldToken).Return(refreshClaims(userID), nil)
	fx.tokenService.EXPECT().GenerateAccessToken(userID).Return("new_access_token", nil)
	fx.tokenService.EXPECT().GenerateRefreshToken(userID).Return("new_refresh_token", nil)
	fx.tokenService.EXPECT().GetRefreshTokenDuration().Return(time.Hour * 24 * 7)

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockUserRepo := mockRepo.NewMockUserRepository(t)
			mockRefreshRepo := mockRepo.NewMockRefreshTokenRepository(t)

			mockFactory.EXPECT().UserRepo().Return(mockUserRepo)
			mockFactory.EXPECT().RefreshTokenRepo().Return(mockRefreshRepo)

			mockRefreshRepo.EXPECT().
				FindRefreshTokenByToken(ctx, oldToken).
				Return(activeLedgerRecord(userID, oldToken), nil)

			// The presented token is consumed before the new one is issued.
			mockRefreshRepo.EXPECT().
				InvalidateRefreshToken(ctx, oldToken).
				Return(nil)

			mockUserRepo.EXPECT().FindByID(ctx, userID).Return(user, nil)

			mockRefreshRepo.EXPECT().
				CreateRefreshToken(ctx, mock.AnythingOfType("*entity.RefreshToken")).
				Run(func(ctx context.Context, token *entity.RefreshToken) {
					assert.Equal(t, "new_refresh_token", token.Token)
					assert.Equal(t, userID, token.UserID)
					assert.False(t, token.Invalidated)
				}).
				Return(nil)

			require.NoError(t, fn(mockFactory))
		}).
		Return(nil)

	output, err := fx.service.Refresh(ctx, usecase.RefreshInput{RefreshToken: oldToken})

	require.NoError(t, err)
	assert.Equal(t, "new_access_token", output.AccessToken)
	assert.Equal(t, "new_refresh_token", output.RefreshToken)
	assert.NotEqual(t, oldToken, output.RefreshToken)
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	userID := uuid.New()

	fx.tokenService.EXPECT().DecodeToken("an_access_token").Return(&service.TokenClaims{
		UserID:    userID,
		Type:      service.TokenTypeAccess,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)

	output, err := fx.service.Refresh(ctx, usecase.RefreshInput{RefreshToken: "an_access_token"})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestAuthService_Refresh_RejectsUndecodableToken(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()

	fx.tokenService.EXPECT().
		DecodeToken("garbage").
		Return(nil, service.ErrTokenMalformed)

	output, err := fx.service.Refresh(ctx, usecase.RefreshInput{RefreshToken: "garbage"})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestAuthService_Refresh_RejectsTokenMissingFromLedger(t *testing.T) {
	// A correctly signed refresh token with no ledger record is rejected.
	fx := createTestAuthService(t)

	ctx := context.Background()
	userID := uuid.New()
	token := "signed_but_unknown"

	fx.tokenService.EXPECT().DecodeToken(token).Return(refreshClaims(userID), nil)

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockUserRepo := mockRepo.NewMockUserRepository(t)
			mockRefreshRepo := mockRepo.NewMockRefreshTokenRepository(t)

			mockFactory.EXPECT().UserRepo().Return(mockUserRepo)
			mockFactory.EXPECT().RefreshTokenRepo().Return(mockRefreshRepo)

			mockRefreshRepo.EXPECT().
				FindRefreshTokenByToken(ctx, token).
				Return(nil, repository.ErrRefreshTokenNotFound)

			err := fn(mockFactory)
			assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
		}).
		Return(domainerrors.ErrInvalidToken)

	output, err := fx.service.Refresh(ctx, usecase.RefreshInput{RefreshToken: token})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestAuthService_Refresh_ReuseRevokesAllSessions(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	userID := uuid.New()
	token := "already_consumed"

	fx.tokenService.EXPECT().DecodeToken(token).Return(refreshClaims(userID), nil)

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockUserRepo := mockRepo.NewMockUserRepository(t)
			mockRefreshRepo := mockRepo.NewMockRefreshTokenRepository(t)

			mockFactory.EXPECT().UserRepo().Return(mockUserRepo)
			mockFactory.EXPECT().RefreshTokenRepo().Return(mockRefreshRepo)

			record := activeLedgerRecord(userID, token)
			record.Invalidated = true

			mockRefreshRepo.EXPECT().
				FindRefreshTokenByToken(ctx, token).
				Return(record, nil)

			mockRefreshRepo.EXPECT().
				InvalidateRefreshTokensByUserID(ctx, userID).
				Return(2, nil)

			// The callback commits so the mass revocation persists.
			require.NoError(t, fn(mockFactory))
		}).
		Return(nil)

	fx.publisher.EXPECT().
		PublishAuthEvent(ctx, mock.AnythingOfType("*service.AuthEvent")).
		Run(func(ctx context.Context, event *service.AuthEvent) {
			assert.Equal(t, service.AuthEventRefreshTokenReuseDetected, event.Type)
			assert.Equal(t, userID, event.UserID)
			assert.Equal(t, 2, event.RevokedSessions)
		}).
		Return(nil)

	output, err := fx.service.Refresh(ctx, usecase.RefreshInput{RefreshToken: token})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenReused)
}

func TestAuthService_Refresh_LostRaceTreatedAsReuse(t *testing.T) {
	// Two concurrent rotations of the same token: the loser of the
	// conditional flip follows the reuse path.
	fx := createTestAuthService(t)

	ctx := context.Background()
	userID := uuid.New()
	token := "contested_token"

	fx.tokenService.EXPECT().DecodeToken(token).Return(refreshClaims(userID), nil)

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockUserRepo := mockRepo.NewMockUserRepository(t)
			mockRefreshRepo := mockRepo.NewMockRefreshTokenRepository(t)

			mockFactory.EXPECT().UserRepo().Return(mockUserRepo)
			mockFactory.EXPECT().RefreshTokenRepo().Return(mockRefreshRepo)

			// Still active at read time, consumed by the winner in between.
			mockRefreshRepo.EXPECT().
				FindRefreshTokenByToken(ctx, token).
				Return(activeLedgerRecord(userID, token), nil)

			mockRefreshRepo.EXPECT().
				InvalidateRefreshToken(ctx, token).
				Return(repository.ErrRefreshTokenAlreadyInvalidated)

			mockRefreshRepo.EXPECT().
				InvalidateRefreshTokensByUserID(ctx, userID).
				Return(1, nil)

			require.NoError(t, fn(mockFactory))
		}).
		Return(nil)

	fx.publisher.EXPECT().
		PublishAuthEvent(ctx, mock.AnythingOfType("*service.AuthEvent")).
		Run(func(ctx context.Context, event *service.AuthEvent) {
			assert.Equal(t, service.AuthEventRefreshTokenReuseDetected, event.Type)
			assert.Equal(t, 1, event.RevokedSessions)
		}).
		Return(nil)

	output, err := fx.service.Refresh(ctx, usecase.RefreshInput{RefreshToken: token})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenReused)
}

func TestAuthService_Refresh_RejectsExpiredLedgerRecord(t *testing.T) {
	fx := createTestAuthService(t)

	ctx := context.Background()
	userID := uuid.New()
	token := "expired_in_ledger"

	fx.tokenService.EXPECT().DecodeToken(token).Return(refreshClaims(userID), nil)

	fx.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		Run(func(ctx context.Context, fn func(repository.RepositoryFactory) error) {
			mockFactory := mockRepo.NewMockRepositoryFactory(t)
			mockUserRepo := mockRepo.NewMockUserRepository(t)
			mockRefreshRepo := mockRepo.NewMockRefreshTokenRepository(t)

			mockFactory.EXPECT().UserRepo().Return(mockUserRepo)
			mockFactory.EXPECT().RefreshTokenRepo().Return(mockRefreshRepo)

			record := activeLedgerRecord(userID, token)
			record.ExpiresAt = time.Now().Add(-time.Hour)

			mockRefreshRepo.EXPECT().
				FindRefreshTokenByToken(ctx, token).
				Return(record, nil)

			err := fn(mockFactory)
			assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
		}).
		Return(domainerrors.ErrInvalidToken)

	output, err := fx.service.Refresh(ctx, usecase.RefreshInput{RefreshToken: token})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}
