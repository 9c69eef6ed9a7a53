package auth

import (
	"testing"

	"fanpulse/config"
	domainerrors "fanpulse/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_Hash(t *testing.T) {
	hasher := NewBcryptHasherWithCost(bcrypt.MinCost)

	strongPassword := "StrongPhrase123!"
	hash, err := hasher.Hash(strongPassword)
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, strongPassword, hash)

	// Verify the hash can be checked
	assert.True(t, hasher.Check(strongPassword, hash))
}

func TestBcryptHasher_HashWithWeakPassword(t *testing.T) {
	hasher := NewBcryptHasherWithCost(bcrypt.MinCost)

	// Weak passwords that should fail validation before hashing
	weakPasswords := []string{
		"123",          // Too short
		"password1!A",  // Forbidden word
		"SECRETS123!",  // No lowercase
		"secrets123!",  // No uppercase
		"SecretWords!", // No numbers
		"Secrets1234",  // No special characters
	}

	for _, weakPassword := range weakPasswords {
		_, err := hasher.Hash(weakPassword)
		assert.Error(t, err, "Expected error for weak password: %s", weakPassword)
	}
}

func TestBcryptHasher_Check(t *testing.T) {
	hasher := NewBcryptHasherWithCost(bcrypt.MinCost)
	password := "StrongPhrase123!"

	hash, err := hasher.Hash(password)
	assert.NoError(t, err)

	// Correct password
	assert.True(t, hasher.Check(password, hash))

	// Incorrect password
	assert.False(t, hasher.Check("WrongPhrase123!", hash))

	// Empty password
	assert.False(t, hasher.Check("", hash))

	// Invalid hash
	assert.False(t, hasher.Check(password, "invalid_hash"))
}

func TestBcryptHasher_ValidatePasswordStrength(t *testing.T) {
	hasher := NewBcryptHasherWithCost(bcrypt.MinCost)

	validPasswords := []string{
		"StrongPhrase123!",
		"MySecure@Code1",
		"Complex#Secret9",
		"Valid$Phrase2024",
	}

	for _, password := range validPasswords {
		err := hasher.ValidatePasswordStrength(password)
		assert.NoError(t, err, "Expected no error for valid password: %s", password)
	}

	testCases := []struct {
		password    string
		expectedErr error
	}{
		{"123", domainerrors.ErrPasswordTooShort},
		{"SECRETS123!", domainerrors.ErrPasswordNoLowercase},
		{"secrets123!", domainerrors.ErrPasswordNoUppercase},
		{"SecretWords!", domainerrors.ErrPasswordNoNumbers},
		{"Secrets1234", domainerrors.ErrPasswordNoSpecialChars},
		{"Password123!", domainerrors.ErrPasswordForbiddenWords},
		{"MyAdmin123!#", domainerrors.ErrPasswordForbiddenWords},
	}

	for _, tc := range testCases {
		err := hasher.ValidatePasswordStrength(tc.password)
		assert.ErrorIs(t, err, tc.expectedErr, "password: %s", tc.password)
	}
}

func TestBcryptHasher_WithCustomCost(t *testing.T) {
	customCost := 6 // Lower cost for faster testing
	hasher := NewBcryptHasherWithCost(customCost)

	password := "StrongPhrase123!"
	hash, err := hasher.Hash(password)
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)

	// Verify the hash uses the configured cost
	cost, err := bcrypt.Cost([]byte(hash))
	assert.NoError(t, err)
	assert.Equal(t, customCost, cost)

	assert.True(t, hasher.Check(password, hash))
}

func TestBcryptHasher_FromConfig(t *testing.T) {
	cfg := &config.Config{
		Auth: &config.AuthConfig{BcryptCost: bcrypt.MinCost},
		PasswordStrength: &config.PasswordStrengthConfig{
			MinLength:      4,
			MaxLength:      64,
			RequireNumbers: true,
		},
	}
	hasher := NewBcryptHasher(cfg)

	// Relaxed policy: only length and numbers are enforced.
	assert.NoError(t, hasher.ValidatePasswordStrength("ab12"))
	assert.ErrorIs(t, hasher.ValidatePasswordStrength("abcd"), domainerrors.ErrPasswordNoNumbers)
	assert.ErrorIs(t, hasher.ValidatePasswordStrength("a1"), domainerrors.ErrPasswordTooShort)
}

func TestBcryptHasher_EdgeCases(t *testing.T) {
	hasher := NewBcryptHasherWithCost(bcrypt.MinCost)

	// Empty password
	err := hasher.ValidatePasswordStrength("")
	assert.ErrorIs(t, err, domainerrors.ErrPasswordTooShort)

	// Over the maximum length
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	err = hasher.ValidatePasswordStrength("Aa1!" + string(long))
	assert.ErrorIs(t, err, domainerrors.ErrPasswordTooLong)

	// Unicode characters count as letters
	err = hasher.ValidatePasswordStrength("Sïcrét123!")
	assert.NoError(t, err)

	// Only special characters
	err = hasher.ValidatePasswordStrength("!@#$%^&*()")
	assert.Error(t, err)
}
