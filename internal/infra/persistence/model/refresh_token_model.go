package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshTokenModel mirrors the 'refresh_tokens' table, the session ledger.
// The invalidated flag only ever flips from false to true; rotation and
// revocation both go through that flip.
type RefreshTokenModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Token       string    `gorm:"type:varchar(512);unique;not null"`
	ExpiresAt   time.Time `gorm:"not null"`
	Invalidated bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}
