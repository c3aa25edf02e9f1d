package domain

import (
	"time"
)

// RefreshToken is an opaque, server-tracked credential exchanged for new
// access tokens. At most one exists per user at any time.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token's expiry has passed at the given instant.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// PasswordResetToken is a single-use, time-boxed credential for resetting a
// forgotten password. At most one unconsumed token exists per user.
type PasswordResetToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token's expiry has passed at the given instant.
func (t *PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Consumable reports whether the token can still be exchanged for a password
// change: not yet used and not expired.
func (t *PasswordResetToken) Consumable(now time.Time) bool {
	return !t.Used && !t.Expired(now)
}
