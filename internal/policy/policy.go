// Package policy decides whether a view may be shown for the current session.
package policy

import (
	"github.com/Balram04/assigno/internal/session"
)

// View paths the policy redirects to.
const (
	EntryView   = "/login"
	StudentHome = "/student"
	StaffHome   = "/admin"
)

// Requirement is the access requirement attached to a view.
type Requirement int

const (
	RequireNone Requirement = iota
	RequireStudent
	RequireAdminOrProfessor
)

func (r Requirement) String() string {
	switch r {
	case RequireNone:
		return "none"
	case RequireStudent:
		return "student"
	case RequireAdminOrProfessor:
		return "admin-or-professor"
	}
	return "unknown"
}

// Subject is what the policy knows about the session.
type Subject struct {
	Loading bool
	Present bool
	Role    session.Role
}

// SubjectOf builds the policy subject from a session snapshot.
func SubjectOf(snap session.Snapshot) Subject {
	return Subject{Loading: snap.Loading(), Present: snap.Present(), Role: snap.Role()}
}

// Outcome is the kind of a Decision.
type Outcome int

const (
	Loading Outcome = iota
	Allow
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Decision is the result of Evaluate. Target is set only for Redirect.
type Decision struct {
	Outcome Outcome
	Target  string
}

func (d Decision) String() string {
	if d.Outcome == Redirect {
		return "redirect " + d.Target
	}
	return d.Outcome.String()
}

// Evaluate applies the access rules in order. It is total: every input yields a decision.
func Evaluate(s Subject, req Requirement) Decision {
	switch {
	case s.Loading:
		return Decision{Outcome: Loading}
	case !s.Present:
		return Decision{Outcome: Redirect, Target: EntryView}
	case req == RequireAdminOrProfessor && !s.Role.IsStaff():
		return Decision{Outcome: Redirect, Target: StudentHome}
	case req == RequireStudent && s.Role != session.RoleStudent:
		return Decision{Outcome: Redirect, Target: StaffHome}
	}
	return Decision{Outcome: Allow}
}

// HomeFor is the view a user of role lands on after signing in.
func HomeFor(role session.Role) string {
	if role == session.RoleStudent {
		return StudentHome
	}
	return StaffHome
}
