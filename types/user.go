package types

import "time"

// User represents an account in the system.
// Accounts are created at registration and never deleted; the only
// mutation after creation is flipping IsVerified on email confirmation.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user. It doubles
	// as the namespace for the user's files.
	Username string `json:"username" db:"username"`

	// Email is the user's email address, unique across accounts.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt digest of the user's password.
	// This field is never exposed in responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// IsVerified reports whether the user has confirmed their email
	// address. Unverified users cannot log in.
	IsVerified bool `json:"is_verified" db:"is_verified"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
