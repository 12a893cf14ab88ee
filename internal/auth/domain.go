package auth

import "time"

// User is a back-office operator account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CanLogin reports whether the account may open a session.
func (u *User) CanLogin() bool {
	return u != nil && u.IsActive && u.PasswordHash != ""
}
