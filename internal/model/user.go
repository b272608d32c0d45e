package model

import (
	"strings"
	"time"
)

// Role is the coarse authorization tier of a user.  Only the values
// declared below are valid; anything else is rejected at the boundary
// instead of being compared as a free-form string.
type Role string

const (
	RoleAdmin    Role = "Admin"    // may create users
	RoleOperator Role = "Operator" // default tier, manages own cameras
)

// ParseRole maps user input to a Role.  Matching is case-insensitive and an
// empty value yields RoleOperator.  The second result is false for unknown
// roles.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return RoleOperator, true
	case strings.EqualFold(s, string(RoleAdmin)):
		return RoleAdmin, true
	case strings.EqualFold(s, string(RoleOperator)):
		return RoleOperator, true
	}
	return "", false
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOperator
}

// CanAdminister reports whether the role grants admin-only operations
// such as user signup.
func (r Role) CanAdminister() bool {
	return r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// User represents an application user record as stored in the
// `users` table.  The password hash never leaves the server; use
// Public to build the projection returned to clients.
//
// Fields:
//  ID           – UUID primary key assigned at creation.
//  Username     – unique, trimmed login name.
//  PasswordHash – bcrypt hash of the password.
//  Role         – Admin or Operator.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           string    // users.id
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// PublicUser is the client-facing view of a User.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Public returns the projection of u that is safe to send to clients.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Role: u.Role}
}
