package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Balram04/assigno/internal/app"
	"github.com/Balram04/assigno/internal/lms"
	"github.com/Balram04/assigno/internal/router"
)

// groupsCmd represents the groups command
var groupsCmd = &cobra.Command{
	Use:     "groups",
	Aliases: []string{"group"},
	Short:   "Browse study groups, manage membership and chat",
}

var listGroupsCmd = &cobra.Command{
	Use:   "list",
	Short: "List study groups",
	Long: `List study groups. By default every group you can browse is shown; --mine limits the
list to groups you belong to and --search/--category filter the catalogue.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mine, _ := cmd.Flags().GetBool("mine")
		query, _ := cmd.Flags().GetString("search")
		category, _ := cmd.Flags().GetString("category")
		return runInView(cmd, homeView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			var (
				groups []lms.Group
				err    error
			)
			if mine {
				groups, err = a.LMS.Groups.Mine(ctx)
			} else {
				groups, err = a.LMS.Groups.Search(ctx, query, category)
			}
			if err != nil {
				return err
			}
			printResult(cmd, groups, func(w io.Writer) { printGroups(w, groups) })
			return nil
		})
	},
}

func printGroups(w io.Writer, groups []lms.Group) {
	if len(groups) == 0 {
		empty(w, "groups")
		return
	}
	heading(w, "groups")
	t := newTable(w, "id", "name", "category", "members", "you")
	for _, g := range groups {
		members := strconv.Itoa(g.MemberCount)
		if g.MaxMembers > 0 {
			members += "/" + strconv.Itoa(g.MaxMembers)
		}
		t.row(g.ID, g.Name, orDash(g.Category), members, membership(g))
	}
	t.flush()
}

func membership(g lms.Group) string {
	switch {
	case g.UserRole != "":
		return g.UserRole
	case g.IsMember:
		return "member"
	case g.HasPendingRequest:
		return "requested"
	case g.IsFull:
		return "full"
	}
	return "-"
}

var getGroupCmd = &cobra.Command{
	Use:   "get GROUP_ID",
	Short: "Show a group and its members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInView(cmd, homeView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			d, err := a.LMS.Groups.Get(ctx, args[0])
			if err != nil {
				return err
			}
			printResult(cmd, d, func(w io.Writer) {
				g := d.Group
				fmt.Fprintf(w, "%s (%s)\n", g.Name, orDash(g.Category))
				if g.Description != "" {
					fmt.Fprintf(w, "%s\n", g.Description)
				}
				fmt.Fprintln(w)
				if len(d.Members) == 0 {
					empty(w, "members")
					return
				}
				heading(w, "members")
				t := newTable(w, "id", "name", "email", "role")
				for _, p := range d.Members {
					t.row(p.ID, orDash(p.FullName), orDash(p.Email), orDash(p.Role))
				}
				t.flush()
			})
			return nil
		})
	},
}

var createGroupCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a study group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		in := lms.GroupInput{Name: args[0]}
		in.Description, _ = f.GetString("description")
		in.Category, _ = f.GetString("category")
		in.CourseID, _ = f.GetString("course")
		in.MaxMembers, _ = f.GetInt("max-members")
		if f.Changed("public") {
			v, _ := f.GetBool("public")
			in.IsPublic = &v
		}
		return runInView(cmd, homeView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			g, err := a.LMS.Groups.Create(ctx, in)
			if err != nil {
				return err
			}
			printResult(cmd, g, func(w io.Writer) {
				okLabel.Fprintf(w, "✓ Created group %s (%s)\n", g.Name, g.ID)
			})
			return nil
		})
	},
}

// groupAction runs a membership operation that returns nothing and reports done.
func groupAction(use, short string, nargs int, op func(ctx context.Context, g *lms.GroupService, cmd *cobra.Command, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInView(cmd, homeView, func(ctx context.Context, a *app.App, m *router.Mount) error {
				if err := op(ctx, a.LMS.Groups, cmd, args); err != nil {
					return err
				}
				printResult(cmd, map[string]any{"action": strings.Fields(use)[0], "args": args}, func(w io.Writer) {
					okLabel.Fprintf(w, "✓ %s\n", short)
				})
				return nil
			})
		},
	}
}

var joinGroupCmd = groupAction("join GROUP_ID", "Request to join a group", 1,
	func(ctx context.Context, g *lms.GroupService, cmd *cobra.Command, args []string) error {
		msg, _ := cmd.Flags().GetString("message")
		return g.Join(ctx, args[0], msg)
	})

var leaveGroupCmd = groupAction("leave GROUP_ID", "Leave a group", 1,
	func(ctx context.Context, g *lms.GroupService, cmd *cobra.Command, args []string) error {
		return g.Leave(ctx, args[0])
	})

var approveRequestCmd = groupAction("approve GROUP_ID USER_ID", "Approve a join request", 2,
	func(ctx context.Context, g *lms.GroupService, cmd *cobra.Command, args []string) error {
		return g.Approve(ctx, args[0], args[1])
	})

var rejectRequestCmd = groupAction("reject GROUP_ID USER_ID", "Reject a join request", 2,
	func(ctx context.Context, g *lms.GroupService, cmd *cobra.Command, args []string) error {
		return g.Reject(ctx, args[0], args[1])
	})

var addMemberCmd = groupAction("add-member GROUP_ID EMAIL_OR_STUDENT_ID", "Add a member", 2,
	func(ctx context.Context, g *lms.GroupService, cmd *cobra.Command, args []string) error {
		return g.AddMember(ctx, args[0], args[1])
	})

var removeMemberCmd = groupAction("remove-member GROUP_ID USER_ID", "Remove a member", 2,
	func(ctx context.Context, g *lms.GroupService, cmd *cobra.Command, args []string) error {
		return g.RemoveMember(ctx, args[0], args[1])
	})

var sendMessageCmd = groupAction("send GROUP_ID MESSAGE", "Message sent", 2,
	func(ctx context.Context, g *lms.GroupService, cmd *cobra.Command, args []string) error {
		return g.SendMessage(ctx, args[0], args[1])
	})

var groupRequestsCmd = &cobra.Command{
	Use:   "requests GROUP_ID",
	Short: "List pending join requests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInView(cmd, homeView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			reqs, err := a.LMS.Groups.Requests(ctx, args[0])
			if err != nil {
				return err
			}
			printResult(cmd, reqs, func(w io.Writer) {
				if len(reqs) == 0 {
					empty(w, "pending requests")
					return
				}
				heading(w, "join requests")
				t := newTable(w, "user id", "name", "student id", "requested", "message")
				for _, r := range reqs {
					t.row(r.UserID, r.FullName, orDash(r.StudentID), formatTime(r.RequestedAt), orDash(r.Message))
				}
				t.flush()
			})
			return nil
		})
	},
}

var groupMessagesCmd = &cobra.Command{
	Use:   "messages GROUP_ID",
	Short: "Show recent group messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return runInView(cmd, homeView, func(ctx context.Context, a *app.App, m *router.Mount) error {
			msgs, err := a.LMS.Groups.Messages(ctx, args[0], limit)
			if err != nil {
				return err
			}
			printResult(cmd, msgs, func(w io.Writer) {
				if len(msgs) == 0 {
					empty(w, "messages")
					return
				}
				newChatPrinter(w).Print(msgs)
			})
			return nil
		})
	},
}

var watchGroupCmd = &cobra.Command{
	Use:   "watch GROUP_ID",
	Short: "Follow a group chat until interrupted",
	Long: `Follow a group chat. New messages are fetched every poll interval
(ASSIGNO_POLL_INTERVAL) until the command is interrupted or the session ends.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		a, err := startApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.Session.Snapshot().Present() {
			return ErrNotSignedIn
		}

		printer := newChatPrinter(cmd.OutOrStdout())
		printer.asJSON = jsonOutput
		if !jsonOutput {
			printer.header(args[0])
		}

		_, poller, err := a.OpenGroupChat(a.Home(), args[0], func(msgs []lms.Message) { printer.Print(msgs) })
		if err != nil {
			return err
		}
		defer poller.Stop()

		select {
		case <-ctx.Done():
			return nil
		case <-poller.Done():
			if a.Rejections() > 0 {
				return ErrSessionEnded
			}
			return nil
		}
	},
}

func init() {
	listGroupsCmd.Flags().Bool("mine", false, "Only groups you belong to")
	listGroupsCmd.Flags().String("search", "", "Search text")
	listGroupsCmd.Flags().String("category", "", "Category, or all")
	createGroupCmd.Flags().String("description", "", "Description")
	createGroupCmd.Flags().String("category", "", "Category")
	createGroupCmd.Flags().String("course", "", "Course ID")
	createGroupCmd.Flags().Int("max-members", 0, "Member limit")
	createGroupCmd.Flags().Bool("public", true, "Listed in the group catalogue")
	joinGroupCmd.Flags().String("message", "", "Message to the group leader")
	groupMessagesCmd.Flags().Int("limit", lms.DefaultMessageLimit, "Number of messages")

	for _, c := range []*cobra.Command{
		listGroupsCmd, getGroupCmd, createGroupCmd, joinGroupCmd, leaveGroupCmd,
		groupRequestsCmd, approveRequestCmd, rejectRequestCmd, addMemberCmd, removeMemberCmd,
		groupMessagesCmd, sendMessageCmd, watchGroupCmd,
	} {
		groupsCmd.AddCommand(c)
	}
	rootCmd.AddCommand(groupsCmd)
}
