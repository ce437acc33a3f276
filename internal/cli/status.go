package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// StatusResponse is the status command output.
type StatusResponse struct {
	Server    string `json:"server"`
	State     string `json:"state"`
	UserID    string `json:"userID,omitempty"`
	FullName  string `json:"fullName,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
	Home      string `json:"home"`
	Error     string `json:"error,omitempty"`
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state",
	Long: `Show the session state. The stored session is verified with the server first, so a
credential that has expired or been revoked shows as signed out.

Examples:
  # Show session status
  assigno status

  # Show session status in JSON format
  assigno status -j`,
	RunE: getStatus,
}

// getStatus initializes the session and reports the settled state.
func getStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	snap := a.Session.Snapshot()
	status := StatusResponse{
		Server: a.Client.ServerURL(),
		State:  snap.State.String(),
		Home:   a.Home(),
		Error:  snap.Error,
	}
	if snap.User != nil {
		status.UserID = snap.User.ID
		status.FullName = snap.User.FullName
		status.Email = snap.User.Email
		status.Role = string(snap.User.Role)
	}
	if !snap.ExpiresAt.IsZero() {
		status.ExpiresAt = snap.ExpiresAt.Format(time.RFC3339)
	}

	printResult(cmd, status, func(w io.Writer) {
		fmt.Fprintf(w, "assigno CLI %s\n", getCLIVersion())
		printStatusPretty(w, status, snap.ExpiresAt)
	})
	return nil
}

// printStatusPretty prints the status information in a human-readable format
func printStatusPretty(w io.Writer, status StatusResponse, expires time.Time) {
	fmt.Fprintf(w, "Server: %s\n", status.Server)
	if status.UserID == "" {
		warnLabel.Fprintln(w, "Not signed in")
		return
	}
	fmt.Fprintf(w, "Signed in as: %s <%s>\n", status.FullName, orDash(status.Email))
	fmt.Fprintf(w, "Role: %s\n", title(status.Role))
	fmt.Fprintf(w, "Session expires: %s\n", expiresIn(expires))
	fmt.Fprintf(w, "Home view: %s\n", status.Home)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
