package models

import "time"

// Session is the persisted half of a bearer token. Only the SHA-256 of the
// secret is stored.
type Session struct {
	ID             string
	UserID         string
	SecretHash     []byte
	CreatedAt      time.Time
	LastVerifiedAt time.Time
}

// SessionWithToken is returned once, at creation, and is the only place the
// plaintext token ("<id>.<secret>") exists.
type SessionWithToken struct {
	Session
	Token string
}

// SessionWithUser is what an authenticated request sees.
type SessionWithUser struct {
	ID             string        `json:"id"`
	User           *UserWithInfo `json:"userWithInfo"`
	CreatedAt      time.Time     `json:"createdAt"`
	LastVerifiedAt time.Time     `json:"lastVerifiedAt"`
}
