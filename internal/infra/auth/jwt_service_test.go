package auth

import (
	"strings"
	"testing"
	"time"

	"fanpulse/config"
	"fanpulse/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test_signing_secret_key_32_bytes" // exactly 256 bits

func testJWTConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:     testSecret,
			AccessTTL:  time.Hour,
			RefreshTTL: time.Hour * 24 * 7,
		},
	}
}

func TestJWTService_GenerateAndDecodeTokens(t *testing.T) {
	jwtService, err := NewJWTService(testJWTConfig())
	assert.NoError(t, err)
	assert.NotNil(t, jwtService)

	userID := uuid.New()

	// Access token round-trip
	accessToken, err := jwtService.GenerateAccessToken(userID)
	assert.NoError(t, err)
	assert.NotEmpty(t, accessToken)

	accessClaims, err := jwtService.DecodeToken(accessToken)
	assert.NoError(t, err)
	assert.NotNil(t, accessClaims)
	assert.Equal(t, userID, accessClaims.UserID)
	assert.Equal(t, service.TokenTypeAccess, accessClaims.Type)
	assert.True(t, accessClaims.ExpiresAt.After(accessClaims.IssuedAt))

	// Refresh token round-trip
	refreshToken, err := jwtService.GenerateRefreshToken(userID)
	assert.NoError(t, err)
	assert.NotEmpty(t, refreshToken)

	refreshClaims, err := jwtService.DecodeToken(refreshToken)
	assert.NoError(t, err)
	assert.Equal(t, userID, refreshClaims.UserID)
	assert.Equal(t, service.TokenTypeRefresh, refreshClaims.Type)

	// ValidateToken agrees with DecodeToken
	assert.True(t, jwtService.ValidateToken(accessToken))
	assert.True(t, jwtService.ValidateToken(refreshToken))
}

func TestJWTService_MalformedToken(t *testing.T) {
	jwtService, err := NewJWTService(testJWTConfig())
	assert.NoError(t, err)

	claims, err := jwtService.DecodeToken("clearly-not-a-jwt-token-format")
	assert.ErrorIs(t, err, service.ErrTokenMalformed)
	assert.Nil(t, claims)
	assert.False(t, jwtService.ValidateToken("clearly-not-a-jwt-token-format"))
	assert.False(t, jwtService.ValidateToken(""))
}

func TestJWTService_TamperedSignature(t *testing.T) {
	jwtService, err := NewJWTService(testJWTConfig())
	assert.NoError(t, err)

	token, err := jwtService.GenerateAccessToken(uuid.New())
	assert.NoError(t, err)

	// Re-sign the same claims with a different secret.
	otherCfg := testJWTConfig()
	otherCfg.JWT.Secret = "another_signing_secret_key_32_by"
	otherService, err := NewJWTService(otherCfg)
	assert.NoError(t, err)
	foreign, err := otherService.GenerateAccessToken(uuid.New())
	assert.NoError(t, err)

	claims, err := jwtService.DecodeToken(foreign)
	assert.ErrorIs(t, err, service.ErrTokenBadSignature)
	assert.Nil(t, claims)

	// Flipping payload bytes without re-signing also fails verification.
	parts := strings.Split(token, ".")
	assert.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	assert.False(t, jwtService.ValidateToken(tampered))
}

func TestJWTService_ExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	cfg.JWT.AccessTTL = -time.Minute
	jwtService, err := NewJWTService(cfg)
	assert.NoError(t, err)

	token, err := jwtService.GenerateAccessToken(uuid.New())
	assert.NoError(t, err)

	claims, err := jwtService.DecodeToken(token)
	assert.ErrorIs(t, err, service.ErrTokenExpired)
	assert.Nil(t, claims)
	assert.False(t, jwtService.ValidateToken(token))
}

func TestJWTService_UnknownTokenType(t *testing.T) {
	jwtService, err := NewJWTService(testJWTConfig())
	assert.NoError(t, err)

	// Correctly signed token with a type claim the codec does not issue.
	now := time.Now()
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.New().String(),
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
		"type": "session",
	})
	signed, err := raw.SignedString([]byte(testSecret))
	assert.NoError(t, err)

	claims, err := jwtService.DecodeToken(signed)
	assert.ErrorIs(t, err, service.ErrTokenWrongType)
	assert.Nil(t, claims)
}

func TestJWTService_SecretTooShort(t *testing.T) {
	cfg := testJWTConfig()
	cfg.JWT.Secret = "only_31_bytes_of_secret_material"[:31]

	jwtService, err := NewJWTService(cfg)
	assert.Error(t, err)
	assert.Nil(t, jwtService)
	assert.Contains(t, err.Error(), "jwt secret")

	// Exactly 256 bits is accepted.
	cfg.JWT.Secret = testSecret
	jwtService, err = NewJWTService(cfg)
	assert.NoError(t, err)
	assert.NotNil(t, jwtService)
}

func TestJWTService_GetRefreshTokenDuration(t *testing.T) {
	jwtService, err := NewJWTService(testJWTConfig())
	assert.NoError(t, err)
	assert.Equal(t, time.Hour*24*7, jwtService.GetRefreshTokenDuration())
}
