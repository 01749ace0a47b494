package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
)

func init() {
	Register(&CreateListCmd{})
}

// CreateListCmd implements the createlist command.
type CreateListCmd struct {
	desc string
}

func (c *CreateListCmd) Name() string      { return "createlist" }
func (c *CreateListCmd) Aliases() []string { return []string{"addlist"} }
func (c *CreateListCmd) Synopsis() string  { return "Create a list" }
func (c *CreateListCmd) Usage() string     { return "todosync createlist [--desc <text>] <list-name>" }
func (c *CreateListCmd) NeedsAuth() bool   { return true }

func (c *CreateListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.desc, "desc", "", "")
}

func (c *CreateListCmd) Run(ctx context.Context, cfg *config.Config, st Store, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: list name required")
		return exitcode.UserError
	}

	// Titles are not unique on the backend; refuse one the user already
	// sees so names keep resolving.
	if _, err := st.Snapshot().ResolveList(title); !errors.Is(err, service.ErrNotFound) {
		fmt.Fprintf(errOut, "error: list already exists: %s\n", title)
		return exitcode.UserError
	}

	if _, err := st.CreateList(ctx, title, c.desc); err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
