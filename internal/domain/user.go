package domain

import (
	"time"
)

// User represents a registered user account.
type User struct {
	ID                  string    `json:"id"`
	Username            string    `json:"username"`
	Email               string    `json:"email"`
	PasswordHash        string    `json:"-"`
	FirstName           string    `json:"first_name"`
	LastName            string    `json:"last_name"`
	IsTemporaryPassword bool      `json:"is_temporary_password"`
	IsActive            bool      `json:"is_active"`
	Roles               []string  `json:"roles"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
