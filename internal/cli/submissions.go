package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Balram04/assigno/internal/app"
	"github.com/Balram04/assigno/internal/lms"
	"github.com/Balram04/assigno/internal/router"
)

// submitCmd uploads files for an assignment.
var submitCmd = &cobra.Command{
	Use:   "submit ASSIGNMENT_ID FILE...",
	Short: "Submit files for an assignment",
	Long: `Submit one or more files for an assignment. Group assignments take the group with
--group.

Examples:
  assigno submit 65a0b1 report.pdf diagram.png --notes "final version"
  assigno submit 65a0b1 slides.pdf --group 64f9e3`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupID, _ := cmd.Flags().GetString("group")
		notes, _ := cmd.Flags().GetString("notes")

		req := lms.SubmitRequest{AssignmentID: args[0], GroupID: groupID, Notes: notes}
		for _, name := range args[1:] {
			f, err := os.Open(name)
			if err != nil {
				return fmt.Errorf("unable to open %s: %w", name, err)
			}
			defer f.Close()
			req.Files = append(req.Files, lms.UploadFile{Name: filepath.Base(name), Content: f})
		}

		return runInView(cmd, studentView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			sub, err := a.LMS.Submissions.Submit(ctx, req)
			if err != nil {
				return err
			}
			printResult(cmd, sub, func(w io.Writer) {
				okLabel.Fprintf(w, "✓ Submitted %d file(s)\n", len(req.Files))
				if sub.ID != "" {
					fmt.Fprintf(w, "Submission: %s\n", sub.ID)
				}
			})
			return nil
		})
	},
}

// downloadCmd saves one file of a submission.
var downloadCmd = &cobra.Command{
	Use:   "download SUBMISSION_ID [INDEX]",
	Short: "Download a submitted file",
	Long: `Download the file at INDEX (default 0) of a submission. The file is written to
--output, to the name the server suggests, or to stdout with --output -.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index := 0
		if len(args) == 2 {
			var err error
			if index, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("invalid file index %q", args[1])
			}
		}
		output, _ := cmd.Flags().GetString("output")

		return runInView(cmd, homeView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			sr, err := a.LMS.Submissions.Download(ctx, args[0], index)
			if err != nil {
				return err
			}
			defer sr.Body.Close()

			if output == "-" {
				_, err := io.Copy(cmd.OutOrStdout(), sr.Body)
				return err
			}
			if output == "" {
				output = sr.Filename
			}
			if output == "" {
				output = fmt.Sprintf("%s-%d", args[0], index)
			}
			output = filepath.Clean(output)

			f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return fmt.Errorf("unable to create %s: %w", output, err)
			}
			n, err := io.Copy(f, sr.Body)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("unable to write %s: %w", output, err)
			}

			printResult(cmd, map[string]any{"file": output, "bytes": n, "contentType": sr.ContentType}, func(w io.Writer) {
				okLabel.Fprintf(w, "✓ Saved %s (%d bytes)\n", output, n)
			})
			return nil
		})
	},
}

// gradeCmd grades a submission.
var gradeCmd = &cobra.Command{
	Use:   "grade SUBMISSION_ID",
	Short: "Grade a submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		grade, _ := cmd.Flags().GetFloat64("grade")
		feedback, _ := cmd.Flags().GetString("feedback")
		return runInView(cmd, staffView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			if err := a.LMS.Submissions.Grade(ctx, args[0], lms.GradeInput{Grade: grade, Feedback: feedback}); err != nil {
				return err
			}
			printResult(cmd, map[string]any{"submission": args[0], "grade": grade}, func(w io.Writer) {
				okLabel.Fprintf(w, "✓ Graded %s: %g\n", args[0], grade)
			})
			return nil
		})
	},
}

// acknowledgeCmd confirms a group submission.
var acknowledgeCmd = &cobra.Command{
	Use:   "acknowledge SUBMISSION_ID",
	Short: "Acknowledge a group submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		note, _ := cmd.Flags().GetString("note")
		return runInView(cmd, staffView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			if err := a.LMS.Submissions.Acknowledge(ctx, args[0], note); err != nil {
				return err
			}
			printResult(cmd, map[string]string{"submission": args[0]}, func(w io.Writer) {
				okLabel.Fprintf(w, "✓ Acknowledged %s\n", args[0])
			})
			return nil
		})
	},
}

func init() {
	submitCmd.Flags().String("group", "", "Submit on behalf of a group")
	submitCmd.Flags().String("notes", "", "Submission notes")
	downloadCmd.Flags().StringP("output", "o", "", "Destination file, - for stdout")
	gradeCmd.Flags().Float64("grade", 0, "Points awarded")
	gradeCmd.Flags().String("feedback", "", "Feedback for the student")
	gradeCmd.MarkFlagRequired("grade")
	acknowledgeCmd.Flags().String("note", "", "Acknowledgment note")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(acknowledgeCmd)
}
