package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one live bearer token. Only the SHA-256 of the token is stored.
type Session struct {
	TokenHash string    `gorm:"type:char(64);primaryKey" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
