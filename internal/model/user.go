// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Users sign in with email and password. GitHubID is set only after the
// account has been linked through GitHub sign-in; zero means "not linked".
//
// WHY json:"-" ON PasswordHash?
// The "-" tag tells encoding/json to skip the field entirely. A bcrypt hash
// is not the password, but it is still an offline-crackable secret and has
// no business in any API response. Using the tag means no handler can leak
// it by accident when it encodes a *User.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"` // stored lower-cased; unique
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	GitHubID     int64     `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Actor is the authenticated identity attempting an operation.
//
// It is passed explicitly into every mutating service call instead of being
// read from the request context inside the service. The service trusts it:
// verifying who the caller is happens before this value is built (see
// internal/auth).
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
