package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/output"
	"todosync/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `todosync list <list-name>` and `todosync list <letter>`.
type ListCmd struct {
	open bool
}

// SetOpen restricts output to open tasks (for testing).
func (c *ListCmd) SetOpen(open bool) {
	c.open = open
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return nil }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "todosync list [--open] <list-name|letter>" }
func (c *ListCmd) NeedsAuth() bool   { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.open, "open", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, st Store, args []string, out, errOut io.Writer) int {
	listName := strings.TrimSpace(strings.Join(args, " "))
	if listName == "" {
		fmt.Fprintln(errOut, "error: list name required")
		return exitcode.UserError
	}

	snap := st.Snapshot()
	list, err := c.resolve(snap, listName)
	if err != nil {
		return report(errOut, err)
	}

	// Numbers follow display order over all tasks so that task references
	// stay valid with --open.
	output.FormatListHeader(out, list)
	for i, task := range service.SortedTasks(list.Tasks) {
		if c.open && task.Status == service.StatusCompleted {
			continue
		}
		output.FormatTask(out, i+1, task)
	}
	return exitcode.Success
}

// resolve accepts a single list letter as well as a title or ID.
func (c *ListCmd) resolve(snap service.Snapshot, name string) (service.List, error) {
	if len(name) == 1 && isLetter(rune(name[0])) {
		if list, err := ResolveListByLetter(snap, rune(name[0])); err == nil {
			return list, nil
		}
	}
	return resolveList(snap, name)
}
