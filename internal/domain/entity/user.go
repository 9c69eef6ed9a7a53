// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the core identity entity, representing a single FanPulse account.
// Session state (refresh tokens) is tracked separately; the user row carries
// only the credential hash for email/password sign-in.
type User struct {
	ID           uuid.UUID // The global unique identifier for the user.
	Email        string    // The user's login identifier. Unique across the system.
	Username     string    // The user's public display name.
	PasswordHash string    // Stores the bcrypt-hashed password. Never the raw password.
	CreatedAt    time.Time // Timestamp of when this account was created.
	UpdatedAt    time.Time // Timestamp of the last modification to this user's data.
}
