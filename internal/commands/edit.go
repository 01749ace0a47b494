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
	Register(&EditCmd{})
}

// optString is a string flag that remembers whether it was given.
type optString struct {
	value string
	set   bool
}

func (o *optString) String() string { return o.value }

func (o *optString) Set(s string) error {
	o.value = s
	o.set = true
	return nil
}

// EditCmd implements the edit command. Only the given fields change.
type EditCmd struct {
	listName string
	name     optString
	desc     optString
	due      optString
	status   optString
}

// SetListName sets the list name (for testing).
func (c *EditCmd) SetListName(name string) {
	c.listName = name
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task" }
func (c *EditCmd) Usage() string {
	return "todosync edit [--list <list-name>] [--name <name>] [--desc <text>] [--due <yyyy-mm-dd|none>] [--status <status>] <ref>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
	fs.Var(&c.name, "name", "")
	fs.Var(&c.desc, "desc", "")
	fs.Var(&c.due, "due", "")
	fs.Var(&c.status, "status", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, st Store, args []string, out, errOut io.Writer) int {
	if !c.name.set && !c.desc.set && !c.due.set && !c.status.set {
		fmt.Fprintln(errOut, "error: nothing to change (use --name, --desc, --due or --status)")
		return exitcode.UserError
	}

	t, err := lookupTask(st.Snapshot(), c.listName, args)
	if err != nil {
		return report(errOut, err)
	}

	task := t.task
	if c.name.set {
		name := strings.TrimSpace(c.name.value)
		if name == "" {
			fmt.Fprintln(errOut, "error: task name required")
			return exitcode.UserError
		}
		task.Name = name
	}
	if c.desc.set {
		task.Description = c.desc.value
	}
	if c.due.set {
		if task.DueDate, err = output.ParseDue(c.due.value); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}
	if c.status.set {
		if task.Status, err = service.ParseStatus(c.status.value); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}

	ok, err := st.UpdateTask(ctx, t.list.ID, task)
	if err != nil {
		return report(errOut, err)
	}
	if !ok {
		return notApplied(errOut, fmt.Sprintf("editing %q", t.task.Name))
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
