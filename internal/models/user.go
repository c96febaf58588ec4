// Package models defines the records mirrored from the blog REST API and
// the core types used throughout the dashboard.
package models

import (
	"strings"
	"time"
)

// Role represents a user's permission level on the blogging platform.
type Role string

const (
	RoleAdministrator Role = "ADMINISTRATOR"
	RoleEditor        Role = "EDITOR"
	RoleAuthor        Role = "AUTHOR"
	RoleSubscriber    Role = "SUBSCRIBER"
)

// Roles lists every role in the order they appear in selects.
var Roles = []Role{RoleAdministrator, RoleEditor, RoleAuthor, RoleSubscriber}

// ParseRole normalises a role string from the API or a form. The second
// return value is false when the value is not one of the known roles.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleEditor, RoleAuthor, RoleSubscriber:
		return true
	}
	return false
}

// Label returns the human-friendly role name.
func (r Role) Label() string {
	switch r {
	case RoleAdministrator:
		return "Administrator"
	case RoleEditor:
		return "Editor"
	case RoleAuthor:
		return "Author"
	case RoleSubscriber:
		return "Subscriber"
	}
	return "Unknown"
}

// User represents a platform account as returned by the API.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsAdmin returns true if the user has the administrator role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdministrator
}

// UserInput is the payload sent to the API when creating or updating a
// user. Password is omitted on updates that don't change it.
type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Password string `json:"password,omitempty"`
}

// PasswordChange is the payload for changing the signed-in user's password.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
