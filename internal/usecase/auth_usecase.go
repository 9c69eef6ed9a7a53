// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"fanpulse/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new account.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=2,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshInput carries the refresh token presented for rotation.
type RefreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// --- Output DTOs ---

// TokenPairOutput returns a freshly issued access/refresh token pair.
// Register, Login, and Refresh all produce one.
type TokenPairOutput struct {
	AccessToken  string
	RefreshToken string
	User         *entity.User
}

// AuthUsecase defines the interface for authentication business operations.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	// Register creates a new account with a unique email and opens its first
	// session: the new user is signed in immediately with a fresh token pair.
	Register(ctx context.Context, input RegisterInput) (*TokenPairOutput, error)

	// Login verifies credentials and opens a session. Unknown email and wrong
	// password produce the identical error.
	Login(ctx context.Context, input LoginInput) (*TokenPairOutput, error)

	// Refresh rotates a refresh token: the presented token is consumed and a
	// new pair is issued. Presenting an already-consumed token revokes every
	// active session of the user and fails.
	Refresh(ctx context.Context, input RefreshInput) (*TokenPairOutput, error)

	// Logout invalidates all of the user's active sessions.
	Logout(ctx context.Context, userID uuid.UUID) error

	// GetUser returns the account profile for an authenticated principal.
	GetUser(ctx context.Context, userID uuid.UUID) (*entity.User, error)

	// CleanupExpiredTokens removes expired ledger records. Housekeeping.
	CleanupExpiredTokens(ctx context.Context) error
}
