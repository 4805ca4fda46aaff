// Package user defines the user model used throughout the application,
// particularly for authentication and link ownership.
package user

// User represents a registered account.
// It is created at signup, read at login and never updated or deleted.
type User struct {
	// ID is the numeric identifier of the user. Zero means "no such user".
	ID int64 `json:"id"`

	// Username is unique across all users.
	Username string `json:"username"`

	// PasswordHash is the bcrypt hash of the user's password, never the password itself.
	PasswordHash string `json:"password"`
}
