package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Balram04/assigno/internal/app"
	"github.com/Balram04/assigno/internal/lms"
	"github.com/Balram04/assigno/internal/router"
	"github.com/Balram04/assigno/internal/session"
)

// coursesCmd represents the courses command
var coursesCmd = &cobra.Command{
	Use:     "courses",
	Aliases: []string{"course"},
	Short:   "List and manage courses",
	Long: `List and manage courses. Students see the courses they are enrolled in; professors
see the courses they teach and administrators see every course.`,
}

var listCoursesCmd = &cobra.Command{
	Use:   "list",
	Short: "List your courses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInView(cmd, homeView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			courses, err := coursesFor(ctx, a)
			if err != nil {
				return err
			}
			printResult(cmd, courses, func(w io.Writer) { printCourses(w, courses) })
			return nil
		})
	},
}

// coursesFor picks the listing that matches the caller's role.
func coursesFor(ctx context.Context, a *app.App) ([]lms.Course, error) {
	snap := a.Session.Snapshot()
	switch snap.Role() {
	case session.RoleStudent:
		return a.LMS.Courses.ForStudent(ctx, snap.User.ID)
	case session.RoleProfessor:
		return a.LMS.Courses.ForProfessor(ctx, snap.User.ID)
	default:
		return a.LMS.Courses.List(ctx)
	}
}

func printCourses(w io.Writer, courses []lms.Course) {
	if len(courses) == 0 {
		empty(w, "courses")
		return
	}
	heading(w, "courses")
	t := newTable(w, "id", "code", "name", "professor", "students", "term")
	for _, c := range courses {
		t.row(c.ID, c.CourseCode, c.CourseName, personName(c.Professor),
			strconv.Itoa(len(c.EnrolledStudents)), term(c))
	}
	t.flush()
}

func term(c lms.Course) string {
	switch {
	case c.Semester != "" && c.Year > 0:
		return fmt.Sprintf("%s %d", c.Semester, c.Year)
	case c.Semester != "":
		return c.Semester
	case c.Year > 0:
		return strconv.Itoa(c.Year)
	}
	return "-"
}

var getCourseCmd = &cobra.Command{
	Use:   "get COURSE_ID",
	Short: "Show a course and its assignments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withAnalytics, _ := cmd.Flags().GetBool("analytics")
		target := courseView(args[0])
		if withAnalytics {
			target = staffCourseView(args[0])
		}
		return runInView(cmd, target, func(ctx context.Context, a *app.App, m *router.Mount) error {
			id := m.Param("courseId")
			course, err := a.LMS.Courses.Get(ctx, id)
			if err != nil {
				return err
			}
			assignments, err := a.LMS.Courses.Assignments(ctx, id)
			if err != nil {
				return err
			}
			out := courseDetail{Course: course, Assignments: assignments}
			if withAnalytics {
				stats, err := a.LMS.Courses.Analytics(ctx, id)
				if err != nil {
					return err
				}
				out.Analytics = &stats
			}
			printResult(cmd, out, func(w io.Writer) { printCourseDetail(w, out) })
			return nil
		})
	},
}

type courseDetail struct {
	Course      lms.Course           `json:"course"`
	Assignments []lms.Assignment     `json:"assignments"`
	Analytics   *lms.CourseAnalytics `json:"analytics,omitempty"`
}

func printCourseDetail(w io.Writer, d courseDetail) {
	c := d.Course
	fmt.Fprintf(w, "%s  %s\n", c.CourseCode, c.CourseName)
	fmt.Fprintf(w, "Professor: %s\n", personName(c.Professor))
	fmt.Fprintf(w, "Term: %s\n", term(c))
	if c.Credits > 0 {
		fmt.Fprintf(w, "Credits: %d\n", c.Credits)
	}
	if c.Description != "" {
		fmt.Fprintf(w, "\n%s\n", c.Description)
	}
	fmt.Fprintln(w)
	printAssignments(w, d.Assignments)
	if a := d.Analytics; a != nil {
		fmt.Fprintln(w)
		heading(w, "analytics")
		fmt.Fprintf(w, "  Students: %d  Assignments: %d  Groups: %d\n", a.TotalStudents, a.TotalAssignments, a.TotalGroups)
		fmt.Fprintf(w, "  Submissions: %d (%.0f%%)  Graded: %d (%.0f%%)\n", a.TotalSubmissions, a.SubmissionRate, a.TotalGraded, a.GradingRate)
		fmt.Fprintf(w, "  Average grade: %.1f\n", a.AverageGrade)
	}
}

var createCourseCmd = &cobra.Command{
	Use:   "create [flags]",
	Short: "Create courses from flags or a manifest",
	Long: `Create a course from flags, or one course per document of a YAML manifest.
Manifest keys use the API field names (courseName, courseCode, credits, ...) and may
reference environment variables as {{ .ENV.NAME }}.

Examples:
  assigno courses create --name Compilers --code CS401 --credits 4
  assigno courses create -f courses.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs, err := courseInputs(cmd)
		if err != nil {
			return err
		}
		return runInView(cmd, staffView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			var created []lms.Course
			for _, in := range inputs {
				c, err := a.LMS.Courses.Create(ctx, in)
				if err != nil {
					return fmt.Errorf("creating %s: %w", in.CourseCode, err)
				}
				created = append(created, c)
			}
			printResult(cmd, created, func(w io.Writer) {
				for _, c := range created {
					okLabel.Fprintf(w, "✓ Created course %s (%s)\n", c.CourseCode, c.ID)
				}
			})
			return nil
		})
	},
}

var updateCourseCmd = &cobra.Command{
	Use:   "update COURSE_ID [flags]",
	Short: "Update a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs, err := courseInputs(cmd)
		if err != nil {
			return err
		}
		if len(inputs) != 1 {
			return errors.New("update takes exactly one course")
		}
		return runInView(cmd, staffView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			c, err := a.LMS.Courses.Update(ctx, args[0], inputs[0])
			if err != nil {
				return err
			}
			printResult(cmd, c, func(w io.Writer) {
				okLabel.Fprintf(w, "✓ Updated course %s\n", c.ID)
			})
			return nil
		})
	},
}

func addCourseFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("filename", "f", "", "YAML manifest with one course per document")
	cmd.Flags().String("name", "", "Course name")
	cmd.Flags().String("code", "", "Course code")
	cmd.Flags().String("description", "", "Description")
	cmd.Flags().String("department", "", "Department")
	cmd.Flags().String("semester", "", "Semester")
	cmd.Flags().Int("year", 0, "Year")
	cmd.Flags().Int("credits", 0, "Credits")
	cmd.Flags().Int("max-students", 0, "Enrollment limit")
	cmd.MarkFlagsMutuallyExclusive("filename", "name")
}

func courseInputs(cmd *cobra.Command) ([]lms.CourseInput, error) {
	if file, _ := cmd.Flags().GetString("filename"); file != "" {
		return loadManifest[lms.CourseInput](file)
	}
	f := cmd.Flags()
	var in lms.CourseInput
	in.CourseName, _ = f.GetString("name")
	in.CourseCode, _ = f.GetString("code")
	in.Description, _ = f.GetString("description")
	in.Department, _ = f.GetString("department")
	in.Semester, _ = f.GetString("semester")
	in.Year, _ = f.GetInt("year")
	in.Credits, _ = f.GetInt("credits")
	in.MaxStudents, _ = f.GetInt("max-students")
	return []lms.CourseInput{in}, nil
}

var deleteCourseCmd = &cobra.Command{
	Use:   "delete COURSE_ID",
	Short: "Delete a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInView(cmd, staffView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			if err := a.LMS.Courses.Delete(ctx, args[0]); err != nil {
				return err
			}
			printResult(cmd, map[string]string{"deleted": args[0]}, func(w io.Writer) {
				okLabel.Fprintf(w, "✓ Deleted course %s\n", args[0])
			})
			return nil
		})
	},
}

// newMembershipCmd builds enroll and unenroll. Students act on themselves; staff name the
// student with --student.
func newMembershipCmd(use, short string, op func(s *lms.CourseService) func(context.Context, string, string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " COURSE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			student, _ := cmd.Flags().GetString("student")
			target := homeView
			if student != "" {
				target = staffView
			}
			return runInView(cmd, target, func(ctx context.Context, a *app.App, m *router.Mount) error {
				if err := op(a.LMS.Courses)(ctx, args[0], student); err != nil {
					return err
				}
				printResult(cmd, map[string]string{"course": args[0], "student": student}, func(w io.Writer) {
					okLabel.Fprintf(w, "✓ %s: %s\n", title(use), args[0])
				})
				return nil
			})
		},
	}
	cmd.Flags().String("student", "", "Student user ID (staff only)")
	return cmd
}

var courseStudentsCmd = &cobra.Command{
	Use:   "students COURSE_ID",
	Short: "List the students enrolled in a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInView(cmd, staffCourseView(args[0]), func(ctx context.Context, a *app.App, m *router.Mount) error {
			students, err := a.LMS.Courses.Students(ctx, m.Param("courseId"))
			if err != nil {
				return err
			}
			printResult(cmd, students, func(w io.Writer) {
				if len(students) == 0 {
					empty(w, "students")
					return
				}
				heading(w, "students")
				t := newTable(w, "id", "name", "email", "student id")
				for _, s := range students {
					t.row(s.ID, orDash(s.FullName), orDash(s.Email), orDash(s.StudentID))
				}
				t.flush()
			})
			return nil
		})
	},
}

func init() {
	getCourseCmd.Flags().Bool("analytics", false, "Include course analytics (staff only)")
	addCourseFlags(createCourseCmd)
	addCourseFlags(updateCourseCmd)

	coursesCmd.AddCommand(listCoursesCmd)
	coursesCmd.AddCommand(getCourseCmd)
	coursesCmd.AddCommand(createCourseCmd)
	coursesCmd.AddCommand(updateCourseCmd)
	coursesCmd.AddCommand(deleteCourseCmd)
	coursesCmd.AddCommand(newMembershipCmd("enroll", "Enroll in a course",
		func(s *lms.CourseService) func(context.Context, string, string) error { return s.Enroll }))
	coursesCmd.AddCommand(newMembershipCmd("unenroll", "Leave a course",
		func(s *lms.CourseService) func(context.Context, string, string) error { return s.Unenroll }))
	coursesCmd.AddCommand(courseStudentsCmd)
	rootCmd.AddCommand(coursesCmd)
}
