package model

import (
	"time"
)

// AccessToken is the credential handed over by the authentication
// collaborator. At most one is active per user.
type AccessToken struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	Token     string     `db:"token"`
	ExpiresAt *time.Time `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
}

func (t *AccessToken) IsExpired() bool {
	return t.ExpiresAt != nil && time.Now().After(*t.ExpiresAt)
}

func (t *AccessToken) IsValid() bool {
	return t.Token != "" && !t.IsExpired()
}
