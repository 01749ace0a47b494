package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct {
	listName string
}

// SetListName sets the list name (for testing).
func (c *DoneCmd) SetListName(name string) {
	c.listName = name
}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return nil }
func (c *DoneCmd) Synopsis() string  { return "Mark tasks completed" }
func (c *DoneCmd) Usage() string     { return "todosync done [--list <list-name>] <ref...>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, st Store, args []string, out, errOut io.Writer) int {
	targets, err := lookupTasks(st.Snapshot(), c.listName, args)
	if err != nil {
		return report(errOut, err)
	}

	for _, t := range targets {
		if t.task.Status == service.StatusCompleted {
			continue
		}
		task := t.task
		task.Status = service.StatusCompleted
		ok, err := st.UpdateTask(ctx, t.list.ID, task)
		if err != nil {
			return report(errOut, err)
		}
		if !ok {
			return notApplied(errOut, fmt.Sprintf("completing %q", t.task.Name))
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
