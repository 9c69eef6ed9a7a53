// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken represents a long-lived, authorized user session in the
// rotation ledger. A record is created on every login, registration, and
// successful rotation, and its Invalidated flag flips false to true exactly
// once. A record is never flipped back: re-presenting an invalidated token is
// treated as a reuse event and revokes the whole session family.
type RefreshToken struct {
	ID          uuid.UUID // The unique ID for this specific refresh token record.
	UserID      uuid.UUID // Links this session to the User it belongs to.
	Token       string    // The signed refresh token value as issued to the client.
	ExpiresAt   time.Time // The exact time when this refresh token expires.
	Invalidated bool      // True once the token has been consumed by rotation, logout, or revocation.
	CreatedAt   time.Time // Timestamp of when this session was created.
}

// Active reports whether the record can still be consumed by a rotation:
// not yet invalidated and not past its expiry.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Invalidated && now.Before(t.ExpiresAt)
}
