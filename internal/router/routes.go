package router

import (
	"github.com/Balram04/assigno/internal/policy"
)

// Route is a view reachable by path.
type Route struct {
	Name        string
	Pattern     string // chi pattern
	Requirement policy.Requirement
}

// Public reports whether the view is shown without consulting the access policy.
func (r Route) Public() bool {
	return r.Requirement == policy.RequireNone
}

// Names of the application views.
const (
	ViewLogin         = "login"
	ViewRegister      = "register"
	ViewStudentHome   = "student-dashboard"
	ViewStudentCourse = "student-course"
	ViewStaffHome     = "admin-dashboard"
	ViewStaffCourse   = "admin-course"
)

// DefaultRoutes is the application route table. Any other path, "/" included, leads to
// the entry view.
var DefaultRoutes = []Route{
	{Name: ViewLogin, Pattern: policy.EntryView, Requirement: policy.RequireNone},
	{Name: ViewRegister, Pattern: "/register", Requirement: policy.RequireNone},
	{Name: ViewStudentHome, Pattern: policy.StudentHome, Requirement: policy.RequireStudent},
	{Name: ViewStudentCourse, Pattern: policy.StudentHome + "/course/{courseId}", Requirement: policy.RequireStudent},
	{Name: ViewStaffHome, Pattern: policy.StaffHome, Requirement: policy.RequireAdminOrProfessor},
	{Name: ViewStaffCourse, Pattern: policy.StaffHome + "/course/{courseId}", Requirement: policy.RequireAdminOrProfessor},
}
