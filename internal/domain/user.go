package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// User Role
// =============================================================================

// UserRole controls access to user management. Roles do not influence
// inspection-record logic.
type UserRole string

const (
	// RoleAdmin can manage user accounts in addition to inspections.
	RoleAdmin UserRole = "Administrador"

	// RoleInspector works inspection cases.
	RoleInspector UserRole = "Fiscal"
)

// String returns the string representation of the role.
func (r UserRole) String() string {
	return string(r)
}

// IsValid returns true if the role is a recognized value.
func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleInspector
}

// =============================================================================
// User Domain Type
// =============================================================================

// User represents an account on the platform.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Role         UserRole  `json:"role"`
	PasswordHash string    `json:"-"` // bcrypt hash, never serialized
}

// IsAdmin returns true if the user can manage accounts.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// =============================================================================
// Sessions
// =============================================================================

// Session is an authenticated login, looked up by its opaque token.
type Session struct {
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
}

// Expired returns true if the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// LoginResult bundles the authenticated user with the raw session token.
type LoginResult struct {
	User  *User
	Token string
}

// =============================================================================
// Service Parameters
// =============================================================================

// CreateUserParams contains validated parameters for creating an account.
type CreateUserParams struct {
	Name     string
	Username string
	Password string
	Role     UserRole
}

// UpdateUserParams carries the editable fields of an account. Nil pointers
// mean "leave unchanged".
type UpdateUserParams struct {
	Name     *string
	Username *string
	Password *string
	Role     *UserRole
}
