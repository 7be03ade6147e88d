package models

import "time"

// OneTimePassword is a pending login challenge. A user has at most one.
type OneTimePassword struct {
	ID        string
	UserID    string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}
