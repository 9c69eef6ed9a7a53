// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"fanpulse/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for the refresh token ledger.
var (
	// ErrRefreshTokenNotFound is returned when a refresh token is not found.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")

	// ErrRefreshTokenAlreadyInvalidated is returned by Invalidate when the
	// record exists but has already been consumed. This is how a caller that
	// loses a rotation race observes the loss; it must treat the token as a
	// reuse candidate rather than retry.
	ErrRefreshTokenAlreadyInvalidated = errors.New("refresh token already invalidated")
)

// RefreshTokenRepository is the rotation ledger: it tracks which refresh
// tokens are currently active per user. The invalidated flag is one-way; a
// record is never flipped back to active.
type RefreshTokenRepository interface {
	// CreateRefreshToken persists a new refresh token, representing a user session.
	CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error

	// FindRefreshTokenByToken retrieves a ledger record by the exact token value.
	FindRefreshTokenByToken(ctx context.Context, token string) (*entity.RefreshToken, error)

	// InvalidateRefreshToken flips a single record from active to invalidated.
	// The flip is conditional on the record still being active, which makes it
	// the single-writer step of a rotation: of two racing callers at most one
	// succeeds, the other receives ErrRefreshTokenAlreadyInvalidated.
	InvalidateRefreshToken(ctx context.Context, token string) error

	// InvalidateRefreshTokensByUserID flips every active record for a user.
	// Used for logout and for the mass revocation triggered by reuse
	// detection. Invalidating zero records is not an error.
	InvalidateRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) (int, error)

	// DeleteExpiredRefreshTokens removes records past their expiry.
	// Housekeeping only; expired records play no part in rotation decisions.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}
