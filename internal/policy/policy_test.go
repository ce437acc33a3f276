package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Balram04/assigno/internal/session"
)

func TestEvaluate(t *testing.T) {
	allow := Decision{Outcome: Allow}
	loading := Decision{Outcome: Loading}
	to := func(target string) Decision { return Decision{Outcome: Redirect, Target: target} }

	tests := []struct {
		name    string
		subject Subject
		req     Requirement
		want    Decision
	}{
		{"loading beats everything", Subject{Loading: true, Present: true, Role: session.RoleAdmin}, RequireStudent, loading},
		{"loading on public view", Subject{Loading: true}, RequireNone, loading},
		{"anonymous on public view", Subject{}, RequireNone, to(EntryView)},
		{"anonymous on student view", Subject{}, RequireStudent, to(EntryView)},
		{"anonymous on staff view", Subject{}, RequireAdminOrProfessor, to(EntryView)},
		{"student on student view", Subject{Present: true, Role: session.RoleStudent}, RequireStudent, allow},
		{"student on staff view", Subject{Present: true, Role: session.RoleStudent}, RequireAdminOrProfessor, to(StudentHome)},
		{"student on public view", Subject{Present: true, Role: session.RoleStudent}, RequireNone, allow},
		{"admin on staff view", Subject{Present: true, Role: session.RoleAdmin}, RequireAdminOrProfessor, allow},
		{"professor on staff view", Subject{Present: true, Role: session.RoleProfessor}, RequireAdminOrProfessor, allow},
		{"admin on student view", Subject{Present: true, Role: session.RoleAdmin}, RequireStudent, to(StaffHome)},
		{"professor on student view", Subject{Present: true, Role: session.RoleProfessor}, RequireStudent, to(StaffHome)},
		{"unknown role on staff view", Subject{Present: true, Role: "dean"}, RequireAdminOrProfessor, to(StudentHome)},
		{"unknown role on student view", Subject{Present: true, Role: "dean"}, RequireStudent, to(StaffHome)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.subject, tt.req))
		})
	}
}

func TestEvaluateIsTotal(t *testing.T) {
	roles := []session.Role{"", session.RoleStudent, session.RoleProfessor, session.RoleAdmin, "dean"}
	reqs := []Requirement{RequireNone, RequireStudent, RequireAdminOrProfessor}
	for _, loading := range []bool{false, true} {
		for _, present := range []bool{false, true} {
			for _, role := range roles {
				for _, req := range reqs {
					d := Evaluate(Subject{Loading: loading, Present: present, Role: role}, req)
					if d.Outcome == Redirect {
						assert.Contains(t, []string{EntryView, StudentHome, StaffHome}, d.Target)
					} else {
						assert.Empty(t, d.Target)
					}
				}
			}
		}
	}
}

func TestHomeFor(t *testing.T) {
	assert.Equal(t, StudentHome, HomeFor(session.RoleStudent))
	assert.Equal(t, StaffHome, HomeFor(session.RoleProfessor))
	assert.Equal(t, StaffHome, HomeFor(session.RoleAdmin))

	// the landing view is always allowed for the role that lands there
	for _, role := range []session.Role{session.RoleStudent, session.RoleProfessor, session.RoleAdmin} {
		req := RequireAdminOrProfessor
		if HomeFor(role) == StudentHome {
			req = RequireStudent
		}
		assert.Equal(t, Allow, Evaluate(Subject{Present: true, Role: role}, req).Outcome)
	}
}

func TestSubjectOf(t *testing.T) {
	u := session.User{ID: "u1", FullName: "Asha Rao", Role: session.RoleStudent}
	assert.Equal(t, Subject{Loading: true}, SubjectOf(session.Snapshot{State: session.StateInitializing}))
	assert.Equal(t, Subject{}, SubjectOf(session.Snapshot{State: session.StateUnauthenticated}))
	assert.Equal(t, Subject{Present: true, Role: session.RoleStudent},
		SubjectOf(session.Snapshot{State: session.StateAuthenticated, User: &u}))
	assert.Equal(t, "redirect /login", Decision{Outcome: Redirect, Target: EntryView}.String())
}
