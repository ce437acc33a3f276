package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Balram04/assigno/internal/app"
	"github.com/Balram04/assigno/internal/lms"
	"github.com/Balram04/assigno/internal/router"
	"github.com/Balram04/assigno/internal/session"
)

// assignmentsCmd represents the assignments command
var assignmentsCmd = &cobra.Command{
	Use:     "assignments",
	Aliases: []string{"assignment"},
	Short:   "List and manage assignments",
}

var listAssignmentsCmd = &cobra.Command{
	Use:   "list",
	Short: "List your assignments",
	Long: `List assignments. Students see their assignments with submission status; staff see
every assignment they manage with submission counts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInView(cmd, homeView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			var (
				list []lms.Assignment
				err  error
			)
			if a.Session.Snapshot().Role() == session.RoleStudent {
				list, err = a.LMS.Assignments.ForStudent(ctx)
			} else {
				list, err = a.LMS.Assignments.AdminAll(ctx)
			}
			if err != nil {
				return err
			}
			printResult(cmd, list, func(w io.Writer) { printAssignments(w, list) })
			return nil
		})
	},
}

func printAssignments(w io.Writer, list []lms.Assignment) {
	if len(list) == 0 {
		empty(w, "assignments")
		return
	}
	heading(w, "assignments")
	t := newTable(w, "id", "title", "course", "due", "status", "grade")
	for _, as := range list {
		t.row(as.ID, as.Title, orDash(as.CourseCode), formatTime(as.DueDate), assignmentStatus(as),
			formatGrade(as.Grade, as.MaxPoints))
	}
	t.flush()
}

// assignmentStatus summarises an assignment from the caller's point of view.
func assignmentStatus(as lms.Assignment) string {
	switch {
	case as.Status != "":
		return as.Status
	case as.Graded:
		return "graded"
	case as.Submitted:
		return "submitted"
	case as.TotalStudents > 0:
		return fmt.Sprintf("%d/%d submitted", as.SubmittedCount, as.TotalStudents)
	case as.IsOverdue || (!as.DueDate.IsZero() && as.DueDate.Before(time.Now())):
		return "overdue"
	}
	return "open"
}

var getAssignmentCmd = &cobra.Command{
	Use:   "get ASSIGNMENT_ID",
	Short: "Show an assignment",
	Long:  `Show an assignment. Staff also get the submissions and grading statistics.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInView(cmd, homeView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			if m.Route.Name == router.ViewStudentHome {
				as, err := a.LMS.Assignments.Get(ctx, args[0])
				if err != nil {
					return err
				}
				printResult(cmd, as, func(w io.Writer) { printAssignment(w, as) })
				return nil
			}
			d, err := a.LMS.Assignments.AdminGet(ctx, args[0])
			if err != nil {
				return err
			}
			printResult(cmd, d, func(w io.Writer) {
				printAssignment(w, d.Assignment)
				fmt.Fprintf(w, "\nSubmitted: %d/%d  Graded: %d  Pending: %d\n\n",
					d.Stats.SubmittedCount, d.Stats.TotalStudents, d.Stats.GradedCount, d.Stats.PendingCount)
				printSubmissions(w, d.Submissions, d.Assignment.MaxPoints)
			})
			return nil
		})
	},
}

func printAssignment(w io.Writer, as lms.Assignment) {
	fmt.Fprintf(w, "%s\n", as.Title)
	if as.CourseName != "" {
		fmt.Fprintf(w, "Course: %s %s\n", as.CourseCode, as.CourseName)
	}
	fmt.Fprintf(w, "Due: %s\n", formatTime(as.DueDate))
	if as.MaxPoints > 0 {
		fmt.Fprintf(w, "Points: %g\n", as.MaxPoints)
	}
	fmt.Fprintf(w, "Status: %s\n", assignmentStatus(as))
	if as.Grade != nil {
		fmt.Fprintf(w, "Grade: %s\n", formatGrade(as.Grade, as.MaxPoints))
	}
	if as.Feedback != "" {
		fmt.Fprintf(w, "Feedback: %s\n", as.Feedback)
	}
	if as.OnedriveLink != "" {
		fmt.Fprintf(w, "Link: %s\n", as.OnedriveLink)
	}
	if as.Description != "" {
		fmt.Fprintf(w, "\n%s\n", as.Description)
	}
	if as.Instructions != "" {
		fmt.Fprintf(w, "\nInstructions:\n%s\n", indentMultiline(as.Instructions, "  "))
	}
}

func printSubmissions(w io.Writer, subs []lms.Submission, maxPoints float64) {
	if len(subs) == 0 {
		empty(w, "submissions")
		return
	}
	heading(w, "submissions")
	t := newTable(w, "id", "student", "submitted", "files", "status", "grade")
	for _, s := range subs {
		files := s.FileCount
		if files == 0 {
			files = len(s.Files)
		}
		t.row(s.ID, orDash(s.StudentName), formatTime(s.SubmittedAt), strconv.Itoa(files),
			orDash(s.Status), formatGrade(s.Grade, maxPoints))
	}
	t.flush()
}

var createAssignmentCmd = &cobra.Command{
	Use:   "create [flags]",
	Short: "Create assignments from flags or a manifest",
	Long: `Create an assignment from flags, or one assignment per document of a YAML manifest.

Examples:
  assigno assignments create --course 64f1c2 --title "Parser" --due 2025-03-01 --points 100
  assigno assignments create -f assignments.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs, err := assignmentInputs(cmd)
		if err != nil {
			return err
		}
		return runInView(cmd, staffView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			var created []lms.Assignment
			for _, in := range inputs {
				as, err := a.LMS.Assignments.Create(ctx, in)
				if err != nil {
					return fmt.Errorf("creating %q: %w", in.Title, err)
				}
				created = append(created, as)
			}
			printResult(cmd, created, func(w io.Writer) {
				for _, as := range created {
					okLabel.Fprintf(w, "✓ Created assignment %q (%s)\n", as.Title, as.ID)
				}
			})
			return nil
		})
	},
}

func assignmentInputs(cmd *cobra.Command) ([]lms.AssignmentInput, error) {
	if file, _ := cmd.Flags().GetString("filename"); file != "" {
		return loadManifest[lms.AssignmentInput](file)
	}
	f := cmd.Flags()
	var in lms.AssignmentInput
	in.Title, _ = f.GetString("title")
	in.Description, _ = f.GetString("description")
	in.CourseID, _ = f.GetString("course")
	in.GroupID, _ = f.GetString("group")
	in.MaxPoints, _ = f.GetFloat64("points")
	in.OnedriveLink, _ = f.GetString("link")
	if due, _ := f.GetString("due"); due != "" {
		var ts lms.Timestamp
		if err := ts.UnmarshalJSON([]byte(due)); err != nil {
			return nil, fmt.Errorf("invalid --due %q", due)
		}
		in.DueDate = &ts
	}
	if f.Changed("for-all") {
		v, _ := f.GetBool("for-all")
		in.IsForAll = &v
	}
	return []lms.AssignmentInput{in}, nil
}

var deleteAssignmentCmd = &cobra.Command{
	Use:   "delete ASSIGNMENT_ID",
	Short: "Delete an assignment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInView(cmd, staffView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			if err := a.LMS.Assignments.Delete(ctx, args[0]); err != nil {
				return err
			}
			printResult(cmd, map[string]string{"deleted": args[0]}, func(w io.Writer) {
				okLabel.Fprintf(w, "✓ Deleted assignment %s\n", args[0])
			})
			return nil
		})
	},
}

func init() {
	f := createAssignmentCmd.Flags()
	f.StringP("filename", "f", "", "YAML manifest with one assignment per document")
	f.String("title", "", "Title")
	f.String("description", "", "Description")
	f.String("course", "", "Course ID")
	f.String("group", "", "Restrict to a group")
	f.String("due", "", "Due date (YYYY-MM-DD or RFC 3339)")
	f.Float64("points", 0, "Maximum points")
	f.String("link", "", "OneDrive link with the materials")
	f.Bool("for-all", true, "Assign to every enrolled student")
	createAssignmentCmd.MarkFlagsMutuallyExclusive("filename", "title")

	assignmentsCmd.AddCommand(listAssignmentsCmd)
	assignmentsCmd.AddCommand(getAssignmentCmd)
	assignmentsCmd.AddCommand(createAssignmentCmd)
	assignmentsCmd.AddCommand(deleteAssignmentCmd)
	rootCmd.AddCommand(assignmentsCmd)
}
