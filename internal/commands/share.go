package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
)

func init() {
	Register(&ShareCmd{})
}

// ShareCmd implements the share command.
type ShareCmd struct {
	listName string
	role     string
}

// SetListName sets the list name (for testing).
func (c *ShareCmd) SetListName(name string) {
	c.listName = name
}

// SetRole sets the role flag (for testing).
func (c *ShareCmd) SetRole(role string) {
	c.role = role
}

func (c *ShareCmd) Name() string      { return "share" }
func (c *ShareCmd) Aliases() []string { return nil }
func (c *ShareCmd) Synopsis() string  { return "Share a list with other users" }
func (c *ShareCmd) Usage() string {
	return "todosync share --list <list-name> [--role editor|viewer] <user-id...>"
}
func (c *ShareCmd) NeedsAuth() bool { return true }

func (c *ShareCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
	fs.StringVar(&c.role, "role", "editor", "")
}

func (c *ShareCmd) Run(ctx context.Context, cfg *config.Config, st Store, args []string, out, errOut io.Writer) int {
	if c.listName == "" {
		fmt.Fprintln(errOut, "error: list required (use --list)")
		return exitcode.UserError
	}
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: user id required")
		return exitcode.UserError
	}

	roleName := c.role
	if roleName == "" {
		roleName = "editor"
	}
	role, err := service.ParseRole(roleName)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if role == service.RoleOwner {
		fmt.Fprintln(errOut, "error: ownership cannot be shared")
		return exitcode.UserError
	}

	list, err := resolveList(st.Snapshot(), c.listName)
	if err != nil {
		return report(errOut, err)
	}

	grants := make([]service.Grant, 0, len(args))
	for _, arg := range args {
		user := strings.TrimSpace(arg)
		if user == "" {
			fmt.Fprintln(errOut, "error: user id required")
			return exitcode.UserError
		}
		grants = append(grants, service.Grant{UserID: user, Role: role})
	}

	ok, err := st.ShareList(ctx, list.ID, grants)
	if err != nil {
		return report(errOut, err)
	}
	if !ok {
		return notApplied(errOut, fmt.Sprintf("sharing %q", list.Title))
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
