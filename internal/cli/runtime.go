package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Balram04/assigno/internal/app"
	"github.com/Balram04/assigno/internal/policy"
	"github.com/Balram04/assigno/internal/router"
	"github.com/Balram04/assigno/internal/session"
)

var (
	ErrNotSignedIn  = errors.New(`not signed in, run "assigno login" first`)
	ErrForbidden    = errors.New("this command is not available to your role")
	ErrSessionEnded = errors.New(`the server ended your session, run "assigno login" again`)
)

// newApp is replaced in tests.
var newApp = func(ctx context.Context) (*app.App, error) {
	return app.New(ctx, cliConfig)
}

// commandContext is cancelled on interrupt.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// startApp builds the client and settles the persisted session.
func startApp(ctx context.Context) (*app.App, error) {
	a, err := newApp(ctx)
	if err != nil {
		return nil, err
	}
	a.Start(ctx)
	return a, nil
}

// viewTarget picks the view a command runs in from the current session.
type viewTarget func(snap session.Snapshot) string

// homeView is the landing view of the signed-in role.
func homeView(snap session.Snapshot) string {
	return policy.HomeFor(snap.Role())
}

func staffView(session.Snapshot) string {
	return policy.StaffHome
}

func studentView(session.Snapshot) string {
	return policy.StudentHome
}

// courseView is the course page under the role's home view.
func courseView(courseID string) viewTarget {
	return func(snap session.Snapshot) string {
		return policy.HomeFor(snap.Role()) + "/course/" + courseID
	}
}

func staffCourseView(courseID string) viewTarget {
	return func(session.Snapshot) string {
		return policy.StaffHome + "/course/" + courseID
	}
}

// viewFn is the body of a command running inside a mounted view. ctx ends when the command
// is interrupted. Leaving the view does not cancel it.
type viewFn func(ctx context.Context, a *app.App, m *router.Mount) error

// runInView starts the client, navigates to the target view and runs fn there. Access is
// decided by the router; a redirect means the command is not available to the caller.
func runInView(cmd *cobra.Command, target viewTarget, fn viewFn) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := enterView(a, target(a.Session.Snapshot()))
	if err != nil {
		return err
	}

	return fn(requestContext(ctx, m), a, m)
}

// requestContext keeps requests sent from a view running after the view is left, so a
// mutation already on the wire is not torn down by a redirect. Interrupts still cancel it.
func requestContext(cmdCtx context.Context, m *router.Mount) context.Context {
	ctx, cancel := context.WithCancel(m.RequestContext())
	context.AfterFunc(cmdCtx, cancel)
	return ctx
}

func enterView(a *app.App, path string) (*router.Mount, error) {
	res, err := a.Router.Navigate(path)
	if err != nil {
		return nil, err
	}
	if res.Redirected() {
		if res.Path == policy.EntryView {
			return nil, ErrNotSignedIn
		}
		return nil, ErrForbidden
	}
	if res.Mount == nil {
		return nil, fmt.Errorf("view %s is not available: %s", path, res.Decision)
	}
	return res.Mount, nil
}
