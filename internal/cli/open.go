package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Balram04/assigno/internal/router"
)

type openResponse struct {
	Requested string   `json:"requested"`
	Decision  string   `json:"decision"`
	Path      string   `json:"path"`
	View      string   `json:"view,omitempty"`
	Params    []string `json:"params,omitempty"`
	Redirects []string `json:"redirects,omitempty"`
}

// openCmd runs the router against the current session and prints where a path leads.
var openCmd = &cobra.Command{
	Use:   "open PATH",
	Short: "Show which view a path opens for the current session",
	Long: `Show which view a path opens for the current session. Protected views redirect to
the login view without a session and to your home view when your role may not see them.

Examples:
  assigno open /admin
  assigno open /student/course/64f1c2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		a, err := startApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Router.Navigate(args[0])
		if err != nil {
			return err
		}
		out := openOutput(args[0], res)

		printResult(cmd, out, func(w io.Writer) {
			if res.Redirected() {
				warnLabel.Fprintf(w, "Redirected: %s -> %s\n", strings.Join(res.Redirects, " -> "), res.Path)
			} else {
				okLabel.Fprintf(w, "✓ %s\n", title(out.Decision))
			}
			fmt.Fprintf(w, "View: %s (%s)\n", orDash(out.View), out.Path)
			for _, p := range out.Params {
				fmt.Fprintf(w, "  %s\n", p)
			}
		})
		return nil
	},
}

func openOutput(requested string, res router.Result) openResponse {
	out := openResponse{
		Requested: requested,
		Decision:  res.Decision.String(),
		Path:      res.Path,
		Redirects: res.Redirects,
	}
	if res.Mount != nil {
		out.View = res.Mount.Route.Name
		if id := res.Mount.Param("courseId"); id != "" {
			out.Params = append(out.Params, "courseId="+id)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(openCmd)
}
