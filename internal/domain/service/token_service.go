// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TokenType distinguishes the two credentials the codec can mint. Every token
// carries exactly one type, and operations that require one type must reject
// the other.
type TokenType string

const (
	// TokenTypeAccess is the short-lived credential authorizing individual API calls.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh is the longer-lived credential used only to obtain new token pairs.
	TokenTypeRefresh TokenType = "refresh"
)

// Classified decode failures. These are internal diagnostics; the delivery
// layer collapses all of them into a single generic response.
var (
	// ErrTokenMalformed is returned when the token is not structurally a signed token.
	ErrTokenMalformed = errors.New("token is malformed")
	// ErrTokenBadSignature is returned when the signature does not verify.
	ErrTokenBadSignature = errors.New("token signature is invalid")
	// ErrTokenExpired is returned when the token is past its expiry.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenWrongType is returned when a well-formed token carries an
	// unknown type claim, or a caller required the other type.
	ErrTokenWrongType = errors.New("token has wrong type")
)

// TokenClaims is the decoded payload of a signed token.
type TokenClaims struct {
	UserID    uuid.UUID
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService defines the interface for generating and validating signed tokens.
// Implementations are stateless: checking a token needs no storage lookup.
type TokenService interface {
	// GenerateAccessToken creates a signed access token for the user.
	GenerateAccessToken(userID uuid.UUID) (string, error)

	// GenerateRefreshToken creates a signed refresh token for the user.
	GenerateRefreshToken(userID uuid.UUID) (string, error)

	// ValidateToken reports whether the token is well-formed, correctly
	// signed, and not expired. It never returns an error; every parse and
	// crypto failure is absorbed into false.
	ValidateToken(token string) bool

	// DecodeToken parses a token and returns its claims, classifying
	// failures as ErrTokenMalformed, ErrTokenBadSignature, ErrTokenExpired,
	// or ErrTokenWrongType.
	DecodeToken(token string) (*TokenClaims, error)

	// GetRefreshTokenDuration returns the configured lifetime for refresh tokens.
	GetRefreshTokenDuration() time.Duration
}
