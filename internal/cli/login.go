package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Balram04/assigno/internal/app"
	"github.com/Balram04/assigno/internal/session"
)

// newLoginCmd creates and returns a new login command
func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the Assigno server",
		Long: `Sign in to the Assigno server. The credential and user are kept in the configured
session storage and reused by later commands until you log out or the server rejects them.

Example:
  assigno login --email asha@example.edu --password s3cret1`,
		RunE: runLogin,
	}

	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

// runLogin handles the login command execution
func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	return withSession(cmd, func(ctx context.Context, a *app.App) session.Result {
		return a.Session.Login(ctx, email, password)
	}, "Login successful")
}

// newRegisterCmd creates and returns a new register command
func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Long: `Create an account on the Assigno server and sign in with it.
Students must provide their student ID.

Example:
  assigno register --name "Asha Rao" --email asha@example.edu --password s3cret1 \
    --confirm-password s3cret1 --role student --student-id S-1042`,
		RunE: runRegister,
	}

	cmd.Flags().String("name", "", "Full name")
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Password, at least 6 characters with letters and digits")
	cmd.Flags().String("confirm-password", "", "Password again")
	cmd.Flags().String("role", string(session.RoleStudent), "Role: student, professor or admin")
	cmd.Flags().String("student-id", "", "Student ID, required for students")
	return cmd
}

func runRegister(cmd *cobra.Command, args []string) error {
	payload := map[string]any{}
	for flag, key := range map[string]string{
		"name":             "fullName",
		"email":            "email",
		"password":         "password",
		"confirm-password": "confirmPassword",
		"role":             "role",
		"student-id":       "studentId",
	} {
		v, _ := cmd.Flags().GetString(flag)
		if v != "" {
			payload[key] = v
		}
	}

	return withSession(cmd, func(ctx context.Context, a *app.App) session.Result {
		return a.Session.Register(ctx, payload)
	}, "Registration successful")
}

// withSession runs an authentication operation and reports its Result.
func withSession(cmd *cobra.Command, op func(ctx context.Context, a *app.App) session.Result, success string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res := op(ctx, a)
	if !res.Success {
		return resultError(res)
	}

	expires := a.Session.Snapshot().ExpiresAt
	printResult(cmd, authView(res.User, expires, a.Home()), func(w io.Writer) {
		okLabel.Fprintf(w, "✓ %s\n", success)
		fmt.Fprintf(w, "Signed in as %s <%s> (%s)\n", res.User.FullName, res.User.Email, roleTitle(res.User.Role))
		if !expires.IsZero() {
			fmt.Fprintf(w, "Session expires at: %s\n", expires.Local().Format(time.RFC3339))
		}
	})
	return nil
}

type authOutput struct {
	User      *session.User `json:"user"`
	ExpiresAt string        `json:"expires_at,omitempty"`
	Home      string        `json:"home"`
}

func authView(u *session.User, expires time.Time, home string) authOutput {
	out := authOutput{User: u, Home: home}
	if !expires.IsZero() {
		out.ExpiresAt = expires.Format(time.RFC3339)
	}
	return out
}

// FieldError is a failed authentication attempt attributed to a form field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func resultError(res session.Result) error {
	if res.Error == "" {
		return errors.New("request failed")
	}
	return &FieldError{Field: res.Field, Message: res.Error}
}

// newLogoutCmd creates and returns a new logout command
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			a, err := startApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			wasSignedIn := a.Session.Snapshot().Present()
			a.Session.Logout()

			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]any{"result": 1, "signed_out": wasSignedIn})
			} else if wasSignedIn {
				okLabel.Fprintln(cmd.OutOrStdout(), "✓ Signed out")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
			}
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLogoutCmd())
}
