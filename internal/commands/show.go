package commands

import (
	"context"
	"flag"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/output"
)

func init() {
	Register(&ShowCmd{})
}

// ShowCmd implements the show command.
type ShowCmd struct {
	listName string
}

// SetListName sets the list name (for testing).
func (c *ShowCmd) SetListName(name string) {
	c.listName = name
}

func (c *ShowCmd) Name() string      { return "show" }
func (c *ShowCmd) Aliases() []string { return nil }
func (c *ShowCmd) Synopsis() string  { return "Print every field of a task" }
func (c *ShowCmd) Usage() string     { return "todosync show [--list <list-name>] <ref>" }
func (c *ShowCmd) NeedsAuth() bool   { return true }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *ShowCmd) Run(ctx context.Context, cfg *config.Config, st Store, args []string, out, errOut io.Writer) int {
	t, err := lookupTask(st.Snapshot(), c.listName, args)
	if err != nil {
		return report(errOut, err)
	}
	output.FormatTaskDetail(out, t.task)
	return exitcode.Success
}
