package models

import "time"

// RefreshToken is a persisted refresh session. Only the SHA-256 hash of the
// raw token is stored.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
