// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's permission level in the system.
type Role string

const (
	RoleUser   Role = "user"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never serialize the hash
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsStaff returns true for editors and admins.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleEditor
}

// Actor is the authenticated identity a request acts as. A nil *Actor means
// the request carries no identity at all.
type Actor struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`

	// Anonymous marks the shared publisher identity used for requests
	// without a session on operations that accept anonymous callers.
	Anonymous bool `json:"anonymous"`
}

// ActorFromUser builds the request identity for a stored user.
func ActorFromUser(u *User) *Actor {
	return &Actor{ID: u.ID, Username: u.Username, Role: u.Role}
}

// IsStaff returns true if the actor is an editor or admin.
func (a *Actor) IsStaff() bool {
	return a != nil && (a.Role == RoleEditor || a.Role == RoleAdmin)
}

// IsAdmin returns true if the actor is an admin.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// IDPtr returns the actor ID as a nullable reference.
func (a *Actor) IDPtr() *uuid.UUID {
	if a == nil {
		return nil
	}
	id := a.ID
	return &id
}
