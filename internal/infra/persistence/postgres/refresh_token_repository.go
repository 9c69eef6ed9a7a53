package postgres

import (
	"context"
	"time"

	"fanpulse/internal/domain/entity"
	domainerrors "fanpulse/internal/domain/errors"
	"fanpulse/internal/domain/repository"
	"fanpulse/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// refreshTokenRepository implements the domain.RefreshTokenRepository interface.
type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository is the constructor for refreshTokenRepository.
func NewRefreshTokenRepository(db *gorm.DB) repository.RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// CreateRefreshToken persists a new refresh token, representing a user session.
func (repo *refreshTokenRepository) CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error {
	tokenM := fromRefreshTokenDomain(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrInvalidToken.WrapMessage("refresh token already exists")
		}
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.NewDatabaseExecuteError(err, "invalid user reference")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create refresh token")
	}

	// Update the entity with generated values
	token.ID = tokenM.ID
	token.CreatedAt = tokenM.CreatedAt

	return nil
}

// FindRefreshTokenByToken retrieves a ledger record by the exact token value.
func (repo *refreshTokenRepository) FindRefreshTokenByToken(ctx context.Context, token string) (*entity.RefreshToken, error) {
	var tokenM model.RefreshTokenModel
	if err := repo.db.WithContext(ctx).
		Where("token = ?", token).
		First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRefreshTokenNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toRefreshTokenDomain(&tokenM), nil
}

// InvalidateRefreshToken flips one record from active to invalidated. The
// WHERE clause makes the flip conditional, so of two racing rotations only
// one sees an affected row; the other gets ErrRefreshTokenAlreadyInvalidated.
func (repo *refreshTokenRepository) InvalidateRefreshToken(ctx context.Context, token string) error {
	result := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("token = ? AND invalidated = ?", token, false).
		Update("invalidated", true)

	if result.Error != nil {
		return errors.WithStack(result.Error)
	}

	if result.RowsAffected == 0 {
		// Distinguish a consumed token from one that never existed.
		var count int64
		if err := repo.db.WithContext(ctx).
			Model(&model.RefreshTokenModel{}).
			Where("token = ?", token).
			Count(&count).Error; err != nil {
			return errors.WithStack(err)
		}
		if count == 0 {
			return repository.ErrRefreshTokenNotFound
		}

		return repository.ErrRefreshTokenAlreadyInvalidated
	}

	return nil
}

// InvalidateRefreshTokensByUserID flips every active record for a user and
// returns how many were affected. Zero is not an error.
func (repo *refreshTokenRepository) InvalidateRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("user_id = ? AND invalidated = ?", userID, false).
		Update("invalidated", true)

	if result.Error != nil {
		return 0, errors.WithStack(result.Error)
	}

	return int(result.RowsAffected), nil
}

// DeleteExpiredRefreshTokens removes all expired refresh tokens from the database.
func (repo *refreshTokenRepository) DeleteExpiredRefreshTokens(ctx context.Context) error {
	if err := repo.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&model.RefreshTokenModel{}).Error; err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// --- Mapper Functions ---

// toRefreshTokenDomain converts a GORM RefreshTokenModel to a domain RefreshToken entity.
func toRefreshTokenDomain(data *model.RefreshTokenModel) *entity.RefreshToken {
	if data == nil {
		return nil
	}

	return &entity.RefreshToken{
		ID:          data.ID,
		UserID:      data.UserID,
		Token:       data.Token,
		ExpiresAt:   data.ExpiresAt,
		Invalidated: data.Invalidated,
		CreatedAt:   data.CreatedAt,
	}
}

// fromRefreshTokenDomain converts a domain RefreshToken entity to a GORM RefreshTokenModel.
func fromRefreshTokenDomain(data *entity.RefreshToken) *model.RefreshTokenModel {
	if data == nil {
		return nil
	}

	return &model.RefreshTokenModel{
		ID:          data.ID,
		UserID:      data.UserID,
		Token:       data.Token,
		ExpiresAt:   data.ExpiresAt,
		Invalidated: data.Invalidated,
		CreatedAt:   data.CreatedAt,
	}
}
