package session

import (
	"time"
)

// Role is the account role assigned by the backend.
type Role string

const (
	RoleStudent   Role = "student"
	RoleProfessor Role = "professor"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleProfessor, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r may use the admin/professor views.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleProfessor
}

// User is the identity record returned by the auth endpoints.
type User struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	Email     string `json:"email,omitempty"`
	Role      Role   `json:"role"`
	StudentID string `json:"studentId,omitempty"`
}

func (u User) complete() bool {
	return u.ID != "" && u.FullName != "" && u.Role.Valid()
}

// Session is an authenticated identity together with its bearer credential.
type Session struct {
	User      User
	Token     string
	ExpiresAt time.Time // zero when the credential carries no readable expiry
}

// State is the session store's lifecycle state.
type State int

const (
	StateInitializing State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// StateChange is published on every transition.
type StateChange struct {
	From State
	To   State
}

// Snapshot is a consistent read of the store.
type Snapshot struct {
	State     State
	User      *User
	ExpiresAt time.Time
	Error     string
}

// Loading reports whether initialization has not settled yet.
func (s Snapshot) Loading() bool {
	return s.State == StateInitializing
}

// Present reports whether a verified session exists.
func (s Snapshot) Present() bool {
	return s.State == StateAuthenticated && s.User != nil
}

// Role returns the session role, or "" without a session.
func (s Snapshot) Role() Role {
	if !s.Present() {
		return ""
	}
	return s.User.Role
}

// Result is the outcome of Login and Register. Failures never panic or return errors;
// Error holds a displayable message and Field optionally names the offending input.
type Result struct {
	Success bool
	User    *User
	Error   string
	Field   string
}
