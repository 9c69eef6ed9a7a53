// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"fanpulse/config"
	"fanpulse/internal/domain/service"
)

// minSecretBits is the smallest signing key the HMAC-SHA256 scheme accepts.
// Shorter secrets weaken every token ever issued, so the constructor refuses
// to start with one.
const minSecretBits = 256

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
// A single secret signs both token types; the "type" claim keeps them apart.
type jwtService struct {
	secret     string        // Secret key for signing both token types.
	accessTTL  time.Duration // Time-to-live for access tokens.
	refreshTTL time.Duration // Time-to-live for refresh tokens.
}

// NewJWTService is the constructor for jwtService.
// It fails fast when the configured secret is shorter than 256 bits.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if bits := len(cfg.JWT.Secret) * 8; bits < minSecretBits {
		return nil, errors.Errorf("jwt secret is %d bits, need at least %d", bits, minSecretBits)
	}
	return &jwtService{
		secret:     cfg.JWT.Secret,
		accessTTL:  cfg.JWT.AccessTTL,
		refreshTTL: cfg.JWT.RefreshTTL,
	}, nil
}

// GenerateAccessToken creates a signed access token for the given user.
func (s *jwtService) GenerateAccessToken(userID uuid.UUID) (string, error) {
	return s.generateToken(userID, s.accessTTL, service.TokenTypeAccess)
}

// GenerateRefreshToken creates a signed refresh token for the given user.
func (s *jwtService) GenerateRefreshToken(userID uuid.UUID) (string, error) {
	return s.generateToken(userID, s.refreshTTL, service.TokenTypeRefresh)
}

// ValidateToken reports whether the token decodes cleanly. All failures
// collapse into false.
func (s *jwtService) ValidateToken(tokenString string) bool {
	_, err := s.DecodeToken(tokenString)
	return err == nil
}

// DecodeToken parses and verifies a token, classifying failures into the
// service package's sentinel errors.
func (s *jwtService) DecodeToken(tokenString string) (*service.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, service.ErrTokenMalformed
	}
	return extractClaims(claims)
}

// GetRefreshTokenDuration returns the configured duration for refresh tokens.
func (s *jwtService) GetRefreshTokenDuration() time.Duration {
	return s.refreshTTL
}

// generateToken is a private helper to create a JWT with specific claims.
func (s *jwtService) generateToken(userID uuid.UUID, ttl time.Duration, tokenType service.TokenType) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID.String(),     // Subject (who the token is for)
		"iat":  now.Unix(),          // Issued At
		"exp":  now.Add(ttl).Unix(), // Expiration Time
		"type": string(tokenType),   // Type of token (access or refresh)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// classifyParseError maps jwt library failures onto the domain's sentinels.
// Expiry is checked before signature inside the library's validator, so the
// order here only matters for tokens failing multiple checks at once.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return service.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
		return service.ErrTokenBadSignature
	default:
		return service.ErrTokenMalformed
	}
}

// extractClaims converts verified MapClaims into the typed TokenClaims.
func extractClaims(claims jwt.MapClaims) (*service.TokenClaims, error) {
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, service.ErrTokenMalformed
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, service.ErrTokenMalformed
	}

	rawType, ok := claims["type"].(string)
	if !ok {
		return nil, service.ErrTokenMalformed
	}
	tokenType := service.TokenType(rawType)
	if tokenType != service.TokenTypeAccess && tokenType != service.TokenTypeRefresh {
		return nil, service.ErrTokenWrongType
	}

	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, service.ErrTokenMalformed
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, service.ErrTokenMalformed
	}

	return &service.TokenClaims{
		UserID:    userID,
		Type:      tokenType,
		IssuedAt:  iat.Time,
		ExpiresAt: exp.Time,
	}, nil
}
