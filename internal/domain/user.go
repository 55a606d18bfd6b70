package domain

import "time"

// User represents an account holder of the system.
type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount carries the fields supplied at signup.
type NewAccount struct {
	Username string
	Email    string
	FullName string
	Password string
	Disabled bool
}

// UserUpdate is a partial profile update. A nil field is absent; an empty
// string is treated the same as absent.
type UserUpdate struct {
	Username *string
	Email    *string
	FullName *string
	Password *string
	Disabled *bool
}

// Field names reported back after an update.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldFullName = "full_name"
	FieldDisabled = "disabled"
	FieldPassword = "password"
)

// Sanitized returns a copy of the user without the password hash.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	return &out
}
