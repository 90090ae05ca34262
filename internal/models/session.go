package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a server-side refresh token record. The token itself never
// leaves the database once issued.
type Session struct {
	ID           uuid.UUID `json:"id" example:"a1b2c3d4-e5f6-7890-1234-567890abcdef"`
	UserID       int64     `json:"-"`
	RefreshToken string    `json:"-"`
	UserAgent    string    `json:"user_agent" example:"curl/8.5.0"`
	ClientIP     string    `json:"client_ip" example:"198.51.100.10"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}
